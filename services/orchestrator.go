package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
)

// OrchestratorConfig bounds chunk fan-out
type OrchestratorConfig struct {
	// MaxConcurrent caps the number of chunks in flight at once
	MaxConcurrent int
	// StaggerDelay spreads worker start times to avoid thundering the
	// gateway. Each worker sleeps chunkID*StaggerDelay plus up to 2s of
	// jitter before its first call. Zero disables staggering.
	StaggerDelay time.Duration
}

func (cfg OrchestratorConfig) withDefaults() OrchestratorConfig {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	return cfg
}

// staggerDelay returns how long the worker for chunkID sleeps before its
// first call. Zero StaggerDelay disables staggering entirely.
func (cfg OrchestratorConfig) staggerDelay(chunkID int) time.Duration {
	if cfg.StaggerDelay <= 0 {
		return 0
	}
	return time.Duration(chunkID)*cfg.StaggerDelay +
		time.Duration(rand.Int63n(int64(2*time.Second)))
}

// ProcessChunks runs worker over every chunk with bounded parallelism and
// returns the results ordered by chunk ID. The first worker error cancels
// the remaining workers and fails the whole batch; a single chunk skips the
// pool entirely and runs inline.
func ProcessChunks[T any](ctx context.Context, chunks []Chunk, cfg OrchestratorConfig, worker func(ctx context.Context, chunk Chunk) (T, error)) ([]T, error) {
	cfg = cfg.withDefaults()

	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(chunks) == 1 {
		result, err := worker(ctx, chunks[0])
		if err != nil {
			return nil, fmt.Errorf("chunk 0 failed: %w", err)
		}
		return []T{result}, nil
	}

	log.Printf("[ORCHESTRATOR] Processing %d chunks with max %d concurrent", len(chunks), cfg.MaxConcurrent)

	results := make([]T, len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.MaxConcurrent)

	for _, chunk := range chunks {
		chunk := chunk
		eg.Go(func() error {
			if delay := cfg.staggerDelay(chunk.ChunkID); delay > 0 {
				select {
				case <-time.After(delay):
				case <-egCtx.Done():
					return egCtx.Err()
				}
			}

			result, err := worker(egCtx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d (pages %d-%d) failed: %w",
					chunk.ChunkID, chunk.StartPage, chunk.EndPage, err)
			}
			results[chunk.ChunkID] = result
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
