package download

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Wait polls id until it completes, is interrupted, or the wait timeout
// elapses. It returns the final item on success.
func (m *Manager) Wait(ctx context.Context, id int64) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, m.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		item, ok := m.Search(id)
		if !ok {
			return Item{}, &NotFoundError{ID: id}
		}
		switch item.State {
		case StateComplete:
			return item, nil
		case StateInterrupted:
			return item, &InterruptedError{Item: item}
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return item, ErrWaitTimeout
			}
			return item, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitAll waits for every id concurrently and fails on the first error.
// The returned items are in the same order as ids.
func (m *Manager) WaitAll(ctx context.Context, ids ...int64) ([]Item, error) {
	items := make([]Item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			item, err := m.Wait(gctx, id)
			items[i] = item
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}
