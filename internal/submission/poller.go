package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/artifact"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/jobs"
)

var (
	// ErrWaitTimeout means the client gave up waiting. The job itself is
	// untouched; a worker will still finish or fail it server-side.
	ErrWaitTimeout = errors.New("timed out waiting for document generation")
	// ErrGenerationFailed surfaces a job that ended FAILED.
	ErrGenerationFailed = errors.New("document generation failed")
)

// WaitForArtifact is the polling half of the dual-path completion signal.
// It checks the artifact table (the authoritative "done" marker) and the job
// row (for failures) until one turns terminal or the attempt bound is spent.
// Safe to run alongside the push listener: both observe the same job-state
// store, and whichever sees completion first wins.
func (s *Service) WaitForArtifact(ctx context.Context, artifactKey string, opts WaitOptions) (*artifact.Artifact, error) {
	if opts.Attempts <= 0 {
		opts = DefaultWaitOptions()
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < opts.Attempts; attempt++ {
		a, err := s.artifacts.Get(ctx, artifactKey)
		if err != nil {
			return nil, fmt.Errorf("poll artifact: %w", err)
		}
		if a != nil {
			return a, nil
		}

		job, err := s.jobs.Get(ctx, artifactKey)
		if err != nil {
			return nil, fmt.Errorf("poll job: %w", err)
		}
		if job != nil && job.Status == jobs.StatusFailed {
			return nil, ErrGenerationFailed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return nil, ErrWaitTimeout
}
