package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"shopassist/domain"
)

// MaxExportWorkers caps concurrent page fetches during CollectAll.
const MaxExportWorkers = 10

// CollectAll fetches every page matching criteria and returns the products
// in page order. Page 1 is fetched first to learn the page count; the rest
// are fetched by up to workers goroutines. Failed pages are reported
// together and no partial result is returned.
func CollectAll(ctx context.Context, svc domain.ListingService, criteria domain.FilterCriteria, workers int) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	first, err := Fetch(ctx, svc, criteria.WithPage(1))
	if err != nil {
		return nil, fmt.Errorf("page=1: %w", err)
	}
	if first.TotalPages <= 1 {
		return append([]domain.Product{}, first.Items...), nil
	}

	remaining := first.TotalPages - 1
	if workers < 1 || workers > MaxExportWorkers {
		workers = MaxExportWorkers
	}
	if remaining < workers {
		workers = remaining
	}

	type result struct {
		page  int
		items []domain.Product
		err   error
	}

	jobs := make(chan int)
	results := make(chan result, remaining)

	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case page, ok := <-jobs:
				if !ok {
					return
				}
				res, err := Fetch(ctx, svc, criteria.WithPage(page))
				if err != nil {
					results <- result{page: page, err: fmt.Errorf("page=%d: %w", page, err)}
				} else {
					results <- result{page: page, items: res.Items}
				}
			}
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

	go func() {
		defer close(jobs)
		for p := 2; p <= first.TotalPages; p++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	pages := make([][]domain.Product, first.TotalPages+1)
	pages[1] = first.Items

	var collected error
	received := 0
	for received < remaining {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case res := <-results:
			received++
			if res.err != nil {
				collected = errors.Join(collected, res.err)
				continue
			}
			pages[res.page] = res.items
		}
	}
	wg.Wait()
	if collected != nil {
		return nil, collected
	}

	n := 0
	for _, items := range pages {
		n += len(items)
	}
	out := make([]domain.Product, 0, n)
	for _, items := range pages {
		out = append(out, items...)
	}
	return out, nil
}
