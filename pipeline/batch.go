package pipeline

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// BatchItem is one named transcript.
type BatchItem struct {
	Name       string
	Transcript string
}

// BatchResult pairs an item with its run outcome.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// Batch runs every item on a worker pool and returns the results in item
// order. Per-item failures are reported in BatchResult.Err; the returned
// error covers only pool setup.
func (p *Pipeline) Batch(ctx context.Context, items []BatchItem) ([]BatchResult, error) {
	results := make([]BatchResult, len(items))
	if len(items) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(min(p.poolSize, len(items)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, item := range items {
		results[i].Name = item.Name
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res, err := p.Run(ctx, item.Transcript)
			results[i].Result = res
			results[i].Err = err
			if err != nil {
				p.logger.Warn("batch item failed", "name", item.Name, "err", err)
			}
		})
		if submitErr != nil {
			wg.Done()
			results[i].Err = submitErr
		}
	}
	wg.Wait()

	return results, nil
}
