// Package coordinator multiplexes a trustee's many boards across a bounded
// number of worker pools (§5): each board runs its own session.Loop, boards
// are assigned to pools by consistent hash so reassignment on board churn
// is minimal, and a refresh signal causes the board list to be re-read and
// pools rebuilt without restarting the boards already in flight from
// scratch.
package coordinator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/braidnet/trustee/internal/board"
	"github.com/braidnet/trustee/internal/session"
)

// Coordinator owns the top-level loop that lists boards and fans each one
// out to a session.Loop under a bounded worker pool.
type Coordinator struct {
	Client       board.Client
	NewLoop      func(boardName string) *session.Loop
	Pools        int
	Concurrency  int64
	StepInterval time.Duration
	Log          *logrus.Entry
}

// Run lists Client's boards, starts one session.Loop per board under the
// pool its name hashes to, and blocks until ctx is canceled, every loop
// exits, or refresh is closed. A value received on refresh re-lists boards
// and restarts the fan-out with the new set; boards already running are
// canceled and their session.Loop recreated against the current board
// list, picking up where their own cursor and local store left off.
func (c *Coordinator) Run(ctx context.Context, refresh <-chan struct{}) error {
	if c.Pools <= 0 {
		c.Pools = 1
	}
	for {
		iterCtx, cancel := context.WithCancel(ctx)

		boards, err := c.Client.ListBoards(iterCtx)
		if err != nil {
			cancel()
			if board.IsTransient(err) {
				c.Log.WithError(err).Warn("transient error listing boards, retrying")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
					continue
				}
			}
			return err
		}

		g, gctx := errgroup.WithContext(iterCtx)
		sems := make([]*semaphore.Weighted, c.Pools)
		for i := range sems {
			sems[i] = semaphore.NewWeighted(c.weight())
		}

		for _, b := range boards {
			boardName := b
			pool := AssignPool(boardName, c.Pools)
			sem := sems[pool]
			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return nil
				}
				defer sem.Release(1)
				return c.NewLoop(boardName).Run(gctx, c.StepInterval)
			})
		}

		waitErr := make(chan error, 1)
		go func() { waitErr <- g.Wait() }()

		select {
		case <-ctx.Done():
			cancel()
			<-waitErr
			return nil
		case err := <-waitErr:
			cancel()
			return err
		case _, ok := <-refresh:
			cancel()
			<-waitErr
			if !ok {
				return nil
			}
			c.Log.Info("refresh signal received, rebuilding board pools")
			continue
		}
	}
}

func (c *Coordinator) weight() int64 {
	if c.Concurrency <= 0 {
		return 1
	}
	return c.Concurrency
}
