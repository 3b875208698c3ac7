package gates

import (
	"context"
	"sort"
	"sync"

	"github.com/adi-verma/quantscanner/internal/contracts"
)

// Per-instrument gate work is embarrassingly parallel: no instrument's
// result depends on another's. parallelMap fans the ticker list out over a
// bounded worker pool and collects one value per ticker. Workers only read
// the batch; the result map is assembled on the collecting side.
//
// Cancellation aborts the whole pass with the context's error. A partial
// map must never escape: a missing entry would read as a zero value
// downstream and end up in the audit trail as a result that was never
// computed. A gate evaluates every ticker or none.
func parallelMap[T any](ctx context.Context, tickers []string, workers int, fn func(ticker string) T) (map[string]T, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(tickers) {
		workers = len(tickers)
	}

	type item struct {
		ticker string
		value  T
	}

	tickerCh := make(chan string, len(tickers))
	resultCh := make(chan item, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultCh <- item{ticker: ticker, value: fn(ticker)}
			}
		}()
	}

	for _, t := range tickers {
		tickerCh <- t
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]T, len(tickers))
	for it := range resultCh {
		results[it.ticker] = it.value
	}
	// Workers only skip tickers when the context is done, so an
	// incomplete map implies a non-nil ctx.Err.
	if len(results) != len(tickers) {
		return nil, ctx.Err()
	}
	return results, nil
}

// survivorsOf extracts the passing tickers in deterministic order
func survivorsOf(results map[string]contracts.GateResult) []string {
	passed := make([]string, 0, len(results))
	for ticker, result := range results {
		if result.Passed {
			passed = append(passed, ticker)
		}
	}
	sort.Strings(passed)
	return passed
}
