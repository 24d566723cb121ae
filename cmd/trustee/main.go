// Command trustee runs a braid mixnet trustee process, and doubles as an
// operator's command-line tool for inspecting a board directly (the
// bb_client-style board subcommands) and decoding a single wire message
// (the m2-style decode subcommand).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/braidnet/trustee/internal/auditlog"
	"github.com/braidnet/trustee/internal/board"
	"github.com/braidnet/trustee/internal/config"
	"github.com/braidnet/trustee/internal/coordinator"
	"github.com/braidnet/trustee/internal/crypto"
	"github.com/braidnet/trustee/internal/session"
	"github.com/braidnet/trustee/internal/store"
	"github.com/braidnet/trustee/internal/trustee"
	"github.com/braidnet/trustee/pkg/wire"
)

func main() {
	app := &cli.App{
		Name:  "trustee",
		Usage: "braid mixnet trustee process and board inspection tool",
		Commands: []*cli.Command{
			runCommand(),
			boardCommand(),
			decodeCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("trustee exited with error")
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start the trustee's coordinator against the configured board",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "trustee.toml", Usage: "path to trustee TOML config"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return runTrustee(c.Context, cfg)
		},
	}
}

func runTrustee(ctx context.Context, cfg *config.Trustee) error {
	suite := crypto.NewSuite()

	privBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return errors.Wrap(err, "trustee: read private key")
	}
	keys, err := crypto.LoadKeyPair(suite, privBytes)
	if err != nil {
		return errors.Wrap(err, "trustee: load key pair")
	}

	pmKey, err := cfg.LoadProtocolManagerPublicKey()
	if err != nil {
		return err
	}

	client, err := board.DialWebSocket(ctx, cfg.BoardURL)
	if err != nil {
		return errors.Wrap(err, "trustee: dial board")
	}
	defer client.Close()

	audit := auditlog.New(cfg.AuditConfig())
	if cfg.Name != "" {
		logrus.WithFields(logrus.Fields{"name": cfg.Name, "position": cfg.Self}).Info("starting trustee")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresh := make(chan struct{})

	c := &coordinator.Coordinator{
		Client:       filteredClient{client, cfg},
		Pools:        cfg.Pools,
		Concurrency:  cfg.Concurrency,
		StepInterval: cfg.StepDuration(),
		Log:          logrus.WithField("component", "coordinator"),
		NewLoop: func(boardName string) *session.Loop {
			tr, err := trusteeFor(cfg, keys, suite, boardName)
			if err != nil {
				logrus.WithError(err).WithField("board", boardName).Fatal("trustee: open local store")
			}
			verifier := session.NewVerifier(suite, pmKey, tr)
			return session.NewLoop(boardName, client, tr, verifier, audit, cfg.Strict)
		},
	}
	return c.Run(ctx, refresh)
}

// trusteeFor opens this trustee's per-board local store (§3.5: "stores are
// keyed by cfg_h and never shared between sessions" — in practice, one
// board per session, so one store file per board) and returns a fresh
// Trustee over it.
func trusteeFor(cfg *config.Trustee, keys crypto.KeyPair, suite crypto.Suite, boardName string) (*trustee.Trustee, error) {
	path := filepath.Join(cfg.StorePath, boardName+".db")
	db, err := store.OpenBolt(path)
	if err != nil {
		return nil, errors.Wrapf(err, "trustee: open store for board %s", boardName)
	}
	return trustee.New(cfg.Position(), keys, suite, db), nil
}

// filteredClient wraps a board.Client, hiding boards the operator has
// explicitly asked this trustee to ignore from the coordinator's fan-out.
type filteredClient struct {
	board.Client
	cfg *config.Trustee
}

func (f filteredClient) ListBoards(ctx context.Context) ([]string, error) {
	all, err := f.Client.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, b := range all {
		if !f.cfg.IgnoresBoard(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func boardCommand() *cli.Command {
	urlFlag := &cli.StringFlag{Name: "server-url", Required: true}
	return &cli.Command{
		Name:  "board",
		Usage: "inspect or post to a board directly, bypassing the protocol engine",
		Subcommands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "list boards known to the server",
				Flags: []cli.Flag{urlFlag},
				Action: func(c *cli.Context) error {
					client, err := board.DialWebSocket(c.Context, c.String("server-url"))
					if err != nil {
						return err
					}
					defer client.Close()
					boards, err := client.ListBoards(c.Context)
					if err != nil {
						return err
					}
					for _, b := range boards {
						fmt.Println(b)
					}
					return nil
				},
			},
			{
				Name:  "get",
				Usage: "print every message on a board",
				Flags: []cli.Flag{urlFlag, &cli.StringFlag{Name: "board", Required: true}, &cli.Uint64Flag{Name: "since", Value: 0}},
				Action: func(c *cli.Context) error {
					client, err := board.DialWebSocket(c.Context, c.String("server-url"))
					if err != nil {
						return err
					}
					defer client.Close()
					msgs, err := client.GetMessages(c.Context, c.String("board"), c.Uint64("since"))
					if err != nil {
						return err
					}
					for _, m := range msgs {
						fmt.Println(describe(m))
					}
					return nil
				},
			},
			{
				Name:  "post",
				Usage: "post a single gob-encoded message read from a file to a board",
				Flags: []cli.Flag{urlFlag, &cli.StringFlag{Name: "board", Required: true}, &cli.StringFlag{Name: "file", Required: true}},
				Action: func(c *cli.Context) error {
					data, err := os.ReadFile(c.String("file"))
					if err != nil {
						return err
					}
					msg, err := wire.UnmarshalMessage(data)
					if err != nil {
						return errors.Wrap(err, "board post: decode message")
					}
					client, err := board.DialWebSocket(c.Context, c.String("server-url"))
					if err != nil {
						return err
					}
					defer client.Close()
					return client.InsertMessages(c.Context, c.String("board"), []wire.Message{msg})
				},
			},
		},
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "decode and print a single gob-encoded wire message",
		Flags: []cli.Flag{&cli.StringFlag{Name: "file", Required: true}},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			msg, err := wire.UnmarshalMessage(data)
			if err != nil {
				return errors.Wrap(err, "decode: unmarshal message")
			}
			fmt.Println(describe(msg))
			return nil
		},
	}
}

func describe(m wire.Message) string {
	return fmt.Sprintf("id=%d kind=%s signer=%d sender_key=%x hash=%x",
		m.ID, m.Statement.Kind, m.Sender.Position, m.Sender.VerifyKey, m.Hash())
}
