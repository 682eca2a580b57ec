package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one upload in a batch.
type BatchItem struct {
	Upload  Upload
	Outcome *Outcome
	Err     error
}

// ScanBatch scans uploads with at most concurrency scans in flight and
// returns one item per upload in input order. A failed upload does not stop
// the others; only a canceled context does.
func (s *Service) ScanBatch(ctx context.Context, uploads []Upload, concurrency int) ([]BatchItem, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	items := make([]BatchItem, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, up := range uploads {
		items[i].Upload = up
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err = err
				return err
			}
			items[i].Outcome, items[i].Err = s.Scan(gctx, up)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return items, err
	}

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	s.log.Info().
		Int("uploads", len(uploads)).
		Int("failed", failed).
		Int("concurrency", concurrency).
		Msg("Batch scan completed")

	return items, nil
}
