package report

// concurrent.go: worker pool para ejecutar el pipeline de cada instrumento.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/quantpro/internal/domain"
)

type instrumentResult struct {
	key    string
	report domain.InstrumentReport
	err    error
}

// buildConcurrent reparte los instrumentos entre workers. El snapshot es de
// solo lectura, así que los workers lo comparten sin locks. El resultado
// respeta el orden de keys.
//
// Si workers <= 0 usa runtime.NumCPU().
func buildConcurrent(
	ctx context.Context,
	snap domain.Snapshot,
	keys []string,
	p domain.Params,
	years []int,
	workers int,
) []instrumentResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(keys) {
		workers = len(keys)
	}

	results := make([]instrumentResult, len(keys))
	workCh := make(chan int, len(keys))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				key := keys[idx]
				if err := ctx.Err(); err != nil {
					results[idx] = instrumentResult{key: key, err: err}
					continue
				}
				ir, err := buildInstrument(ctx, snap, key, p, years)
				results[idx] = instrumentResult{key: key, report: ir, err: err}
			}
		}()
	}

	for i := range keys {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("instrument pipelines complete", "instruments", len(keys), "workers", workers)
	return results
}
