// Package auditlog records the administrative trail a trustee operator
// reviews after the fact: session lifecycle, strict-mode terminations, and
// the datalog/proof failures that make a trustee abstain or abort a batch
// (§7). It is a separate, rotated stream from ordinary process logging, the
// way a board's own operational log is kept apart from its protocol
// traffic.
package auditlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/braidnet/trustee/pkg/wire"
)

// Config controls where the audit trail is written and how it rotates.
type Config struct {
	// Path is the audit log file. Empty disables rotation and writes to
	// stdout only.
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Log is an append-only, rotated record of administrative events for one
// trustee process. Every method is safe for concurrent use, since a
// trustee's boards each run their own session loop.
type Log struct {
	entry *logrus.Entry
}

// New builds a Log from cfg. With an empty Path it writes structured JSON
// to stdout only, useful for the in-process harness and tests.
func New(cfg Config) *Log {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	var out io.Writer = os.Stdout
	if cfg.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	logger.SetOutput(out)

	return &Log{entry: logrus.NewEntry(logger)}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// SessionStarted records a session loop beginning work on a board.
func (l *Log) SessionStarted(runID, board string) {
	l.entry.WithFields(logrus.Fields{
		"event": "session_started",
		"run":   runID,
		"board": board,
	}).Info("session started")
}

// SessionStopped records a session loop exiting, with the error that ended
// it, if any.
func (l *Log) SessionStopped(runID, board string, err error) {
	fields := logrus.Fields{
		"event": "session_stopped",
		"run":   runID,
		"board": board,
	}
	if err != nil {
		l.entry.WithFields(fields).WithError(err).Warn("session stopped")
		return
	}
	l.entry.WithFields(fields).Info("session stopped")
}

// StrictModeTerminated records a strict-mode trustee shutting itself down
// in response to a disagreement it will not silently tolerate (§7).
func (l *Log) StrictModeTerminated(runID, board, reason string) {
	l.entry.WithFields(logrus.Fields{
		"event":  "strict_mode_terminated",
		"run":    runID,
		"board":  board,
		"reason": reason,
	}).Error("strict mode terminated session")
}

// DatalogError records an engine-level evaluation error (a conflicting
// relation tuple, a repeat-mix detection) surfaced while building the
// action set for a board (§7).
func (l *Log) DatalogError(runID, board string, err error) {
	l.entry.WithFields(logrus.Fields{
		"event": "datalog_error",
		"run":   runID,
		"board": board,
	}).WithError(err).Error("datalog evaluation error")
}

// ProofInvalid records a local verification failure: a share, shuffle, or
// decryption proof this trustee checked and rejected, with the abstain or
// batch-abort outcome it produced (§4.4.2, §4.4.5).
func (l *Log) ProofInvalid(runID, board string, cfgH wire.ConfigurationHash, batch wire.BatchNumber, outcome, reason string) {
	l.entry.WithFields(logrus.Fields{
		"event":   "proof_invalid",
		"run":     runID,
		"board":   board,
		"cfg":     cfgH,
		"batch":   batch,
		"outcome": outcome,
		"reason":  reason,
	}).Warn("proof verification failed")
}
