package store

import (
	"encoding/binary"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/braidnet/trustee/pkg/wire"
)

var (
	bucketMessages = []byte("messages") // seq (big-endian uint64) -> gob(Message)
	bucketSeen     = []byte("seen")     // message hash -> seq, for Add dedup
)

// Bolt is a durable, single-file Store backed by bbolt, the embedded
// B+tree key/value store etcd itself uses for local persistence. A trustee
// process restarts against the same file with its full local history; the
// session loop's cursor starts again at 0, so the board is read from the
// start and messages already stored are skipped by Add's dedup.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) a bbolt-backed store at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "store: open bolt db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMessages); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketSeen)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: init buckets")
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Add(msg wire.Message) (bool, error) {
	h := msg.Hash()
	added := false
	err := b.db.Update(func(tx *bolt.Tx) error {
		seen := tx.Bucket(bucketSeen)
		if seen.Get(h[:]) != nil {
			return nil
		}
		messages := tx.Bucket(bucketMessages)
		seq, err := messages.NextSequence()
		if err != nil {
			return errors.Wrap(err, "store: next sequence")
		}
		enc, err := wire.MarshalMessage(msg)
		if err != nil {
			return errors.Wrap(err, "store: marshal message")
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		if err := messages.Put(key[:], enc); err != nil {
			return err
		}
		if err := seen.Put(h[:], key[:]); err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, errors.Wrap(err, "store: add message")
}

func (b *Bolt) All() ([]wire.Message, error) {
	var out []wire.Message
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketMessages).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			msg, err := wire.UnmarshalMessage(v)
			if err != nil {
				return errors.Wrap(err, "store: unmarshal message")
			}
			out = append(out, msg)
		}
		return nil
	})
	return out, errors.Wrap(err, "store: list messages")
}

func (b *Bolt) Cursor() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketMessages).Stats().KeyN
		return nil
	})
	return n, errors.Wrap(err, "store: cursor")
}

func (b *Bolt) Close() error { return b.db.Close() }

var _ Store = (*Bolt)(nil)
