package board

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/braidnet/trustee/pkg/wire"
)

// frame is the envelope every request and response travels in over the
// single websocket connection a WebSocket client holds open to the board
// server. Request/response pairs are correlated by ID since gorilla's
// connection is a bare message stream with no built-in RPC framing.
//
// Messages travel as wire.MarshalMessage bytes (base64 strings under
// encoding/json), not as structured JSON: wire.Message holds its artifact
// behind the Artifact interface, which encoding/json cannot decode into,
// while the local codec round-trips the concrete type intact.
type frame struct {
	ID     string `json:"id"`
	Method string `json:"method,omitempty"`
	Board  string `json:"board,omitempty"`
	Since  uint64 `json:"since,omitempty"`

	Messages  [][]byte `json:"messages,omitempty"`
	Boards    []string `json:"boards,omitempty"`
	Error     string   `json:"error,omitempty"`
	Permanent bool     `json:"permanent,omitempty"`
}

const writeTimeout = 5 * time.Second

// WebSocket is a board.Client that speaks a small JSON-over-websocket RPC
// protocol to a board server (§6.2): one long-lived connection, dispatched
// by request ID rather than one connection per call.
type WebSocket struct {
	conn *websocket.Conn
	log  *logrus.Entry

	mu      sync.Mutex
	writeMu sync.Mutex
	pending map[string]chan frame
	closed  bool
}

// DialWebSocket opens a connection to a board server at url and starts its
// read loop.
func DialWebSocket(ctx context.Context, url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &Transient{Err: errors.Wrap(err, "board: dial")}
	}
	w := &WebSocket{
		conn:    conn,
		log:     logrus.WithField("component", "board"),
		pending: map[string]chan frame{},
	}
	go w.readLoop()
	return w, nil
}

func (w *WebSocket) readLoop() {
	for {
		var f frame
		if err := w.conn.ReadJSON(&f); err != nil {
			w.failAllPending(err)
			return
		}
		w.mu.Lock()
		ch, ok := w.pending[f.ID]
		if ok {
			delete(w.pending, f.ID)
		}
		w.mu.Unlock()
		if ok {
			ch <- f
		}
	}
}

func (w *WebSocket) failAllPending(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.pending {
		ch <- frame{ID: id, Error: err.Error()}
		delete(w.pending, id)
	}
}

func (w *WebSocket) call(ctx context.Context, req frame) (frame, error) {
	req.ID = uuid.NewString()
	ch := make(chan frame, 1)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return frame{}, &Permanent{Err: errors.New("board: connection closed")}
	}
	w.pending[req.ID] = ch
	w.mu.Unlock()

	w.writeMu.Lock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := w.conn.WriteJSON(req)
	w.writeMu.Unlock()
	if err != nil {
		w.mu.Lock()
		delete(w.pending, req.ID)
		w.mu.Unlock()
		return frame{}, &Transient{Err: errors.Wrap(err, "board: write")}
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			if resp.Permanent {
				return frame{}, &Permanent{Err: errors.New(resp.Error)}
			}
			return frame{}, &Transient{Err: errors.New(resp.Error)}
		}
		return resp, nil
	case <-ctx.Done():
		w.mu.Lock()
		delete(w.pending, req.ID)
		w.mu.Unlock()
		return frame{}, &Transient{Err: ctx.Err()}
	}
}

func (w *WebSocket) GetMessages(ctx context.Context, boardName string, since uint64) ([]wire.Message, error) {
	resp, err := w.call(ctx, frame{Method: "get_messages", Board: boardName, Since: since})
	if err != nil {
		return nil, err
	}
	out := make([]wire.Message, 0, len(resp.Messages))
	for i, raw := range resp.Messages {
		msg, err := wire.UnmarshalMessage(raw)
		if err != nil {
			// §7 Deserialize: skip the message and log; the step goes on
			// with whatever did decode.
			w.log.WithError(err).WithFields(logrus.Fields{"board": boardName, "index": i}).
				Warn("dropping undecodable board message")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (w *WebSocket) InsertMessages(ctx context.Context, boardName string, msgs []wire.Message) error {
	encoded := make([][]byte, len(msgs))
	for i, m := range msgs {
		b, err := wire.MarshalMessage(m)
		if err != nil {
			return &Permanent{Err: errors.Wrap(err, "board: encode message")}
		}
		encoded[i] = b
	}
	_, err := w.call(ctx, frame{Method: "insert_messages", Board: boardName, Messages: encoded})
	return err
}

func (w *WebSocket) ListBoards(ctx context.Context) ([]string, error) {
	resp, err := w.call(ctx, frame{Method: "list_boards"})
	if err != nil {
		return nil, err
	}
	return resp.Boards, nil
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.conn.Close()
}

var _ Client = (*WebSocket)(nil)
