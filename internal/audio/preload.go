package audio

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultPreloadConcurrency bounds the parallel synthesis requests of Preload
const DefaultPreloadConcurrency = 4

// PreloadResult summarizes a preload run
type PreloadResult struct {
	Requested int
	Loaded    int
	Failed    map[string]error
}

// Preload synthesizes every text that is not cached yet. One failing item
// does not stop the others. The returned error is ErrQuotaExceeded when all
// failures were quota errors and ErrPreloadFailed when nothing loaded.
func Preload(ctx context.Context, synth Synthesizer, cache *Cache, texts []string, concurrency int, logger *log.Logger) (PreloadResult, error) {
	missing := cache.Missing(texts)
	result := PreloadResult{Requested: len(missing), Failed: make(map[string]error)}
	if len(missing) == 0 {
		return result, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultPreloadConcurrency
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, text := range missing {
		g.Go(func() error {
			buf, err := synth.Synthesize(gctx, text)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if logger != nil {
					logger.Printf("failed to preload audio for %q: %v", text, err)
				}
				result.Failed[text] = err
				return nil
			}
			cache.Put(text, buf)
			result.Loaded++
			return nil
		})
	}
	g.Wait()

	if len(result.Failed) == 0 {
		return result, nil
	}
	if logger != nil {
		logger.Printf("%d out of %d audio files failed to preload", len(result.Failed), len(missing))
	}

	allQuota := true
	var first error
	for _, text := range missing {
		err, ok := result.Failed[text]
		if !ok {
			continue
		}
		if first == nil {
			first = err
		}
		if !IsQuotaError(err) {
			allQuota = false
		}
	}

	if allQuota {
		return result, ErrQuotaExceeded
	}
	if len(result.Failed) == len(missing) {
		return result, fmt.Errorf("%w: all %d items failed, first error: %v", ErrPreloadFailed, len(missing), first)
	}
	return result, nil
}
