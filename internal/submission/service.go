package submission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/artifact"
	awsx "github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/jobs"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/storage"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/validation"
)

// Submission outcomes.
const (
	StatusCached = "cached"
	StatusQueued = "queued"
)

var (
	// ErrInvalidCaseID rejects ids failing the allow-list pattern.
	ErrInvalidCaseID = errors.New("invalid case id")
	// ErrInvalidTemplateType rejects template types outside the enum.
	ErrInvalidTemplateType = errors.New("invalid template type")
	// ErrEnqueueFailed means the job row exists (marked FAILED) but the queue
	// send did not go through; a fresh submit re-enqueues.
	ErrEnqueueFailed = errors.New("could not enqueue generation job")
)

// Input carries one authenticated submission. Authorization for the case is
// the caller's precondition; UserID is whoever the auth layer vouched for.
type Input struct {
	CaseID       string
	TemplateType string
	DataHash     string
	UserID       string
}

// Result is what the caller gets back: a signed URL when the artifact is
// already on file, otherwise the key of the (single) queued job.
type Result struct {
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ArtifactKey string `json:"artifactKey"`
}

// Service is the submission front of the generation pipeline: it derives the
// artifact key, serves cache hits from the durable artifact table, and folds
// duplicate submissions into at most one queued job per key.
type Service struct {
	artifacts *artifact.Store
	jobs      *jobs.Store
	signer    *storage.Signer
	jobQueue  *awsx.Publisher
	metrics   *awsx.Metrics

	// current template version per type; bumping a version changes every
	// derived key, which is how stale artifacts age out of the cache
	versions map[string]string
}

// NewService wires a submission Service. versions may be nil, in which case
// every template is at "v1".
func NewService(artifacts *artifact.Store, jobStore *jobs.Store, signer *storage.Signer, jobQueue *awsx.Publisher, metrics *awsx.Metrics, versions map[string]string) *Service {
	return &Service{
		artifacts: artifacts,
		jobs:      jobStore,
		signer:    signer,
		jobQueue:  jobQueue,
		metrics:   metrics,
		versions:  versions,
	}
}

func (s *Service) versionFor(templateType string) string {
	if v, ok := s.versions[templateType]; ok {
		return v
	}
	return "v1"
}

// Submit implements the cache-or-queue decision. Side effects: one audit row
// per cache hit, at most one job row per unique key ever.
func (s *Service) Submit(ctx context.Context, in Input) (Result, error) {
	if !validation.CaseIDValid(in.CaseID) {
		return Result{}, ErrInvalidCaseID
	}
	if !artifact.KnownTemplateType(in.TemplateType) {
		return Result{}, ErrInvalidTemplateType
	}

	version := s.versionFor(in.TemplateType)
	key, err := artifact.ComputeKey(in.CaseID, in.TemplateType, version, in.DataHash)
	if err != nil {
		return Result{}, err
	}

	existing, err := s.artifacts.Get(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("artifact lookup: %w", err)
	}
	if existing != nil {
		s.metrics.ArtifactLookup(ctx, true)
		url, err := s.signer.SignGet(ctx, in.CaseID, existing.StoragePath, storage.SubmitURLTTL)
		if err != nil {
			return Result{}, fmt.Errorf("sign artifact url: %w", err)
		}
		if err := s.artifacts.AppendAccess(ctx, artifact.AccessRecord{
			CaseID:       in.CaseID,
			TemplateType: in.TemplateType,
			Path:         existing.StoragePath,
			UserID:       in.UserID,
			ArtifactKey:  key,
		}); err != nil {
			// the user still gets their document; the trail gap is logged
			log.Printf("[submit] audit append failed for key=%s: %v", key, err)
		}
		return Result{
			Status:      StatusCached,
			URL:         url,
			Filename:    fmt.Sprintf("%s-%s.pdf", in.TemplateType, in.CaseID),
			ArtifactKey: key,
		}, nil
	}

	s.metrics.ArtifactLookup(ctx, false)
	created, err := s.jobs.CreateIfNotExists(ctx, jobs.Job{
		ArtifactKey:     key,
		CaseID:          in.CaseID,
		TemplateType:    in.TemplateType,
		TemplateVersion: version,
		DataHash:        in.DataHash,
		UserID:          in.UserID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create job: %w", err)
	}
	if !created {
		return s.resumeExisting(ctx, key, in, version)
	}

	msg := jobs.Message{
		ArtifactKey:     key,
		CaseID:          in.CaseID,
		TemplateType:    in.TemplateType,
		TemplateVersion: version,
		DataHash:        in.DataHash,
		UserID:          in.UserID,
	}
	if err := s.jobQueue.Send(ctx, msg, map[string]string{"artifact_key": key}); err != nil {
		// let the client retry; a fresh submit will re-enqueue
		if ferr := s.jobs.MarkFailed(ctx, key, fmt.Sprintf("enqueue failed: %v", err)); ferr != nil {
			log.Printf("[submit] mark failed after enqueue error key=%s: %v", key, ferr)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	return Result{Status: StatusQueued, ArtifactKey: key}, nil
}

// resumeExisting handles a submit that found an existing job row. Queued,
// running and completed jobs just need the queued acknowledgement, but a
// FAILED job would otherwise be a dead end: nothing is in flight for its key
// and no artifact will ever appear. Requeue it with a conditional
// FAILED -> QUEUED transition (still exactly one row per key) and re-send the
// message; losing that transition means a concurrent submit already did.
func (s *Service) resumeExisting(ctx context.Context, key string, in Input, version string) (Result, error) {
	job, err := s.jobs.Get(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("fetch existing job: %w", err)
	}
	if job == nil || job.Status != jobs.StatusFailed {
		return Result{Status: StatusQueued, ArtifactKey: key}, nil
	}

	err = s.jobs.UpdateStatus(ctx, key, jobs.StatusFailed, jobs.StatusQueued)
	if errors.Is(err, jobs.ErrStatusMismatch) {
		return Result{Status: StatusQueued, ArtifactKey: key}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("requeue failed job: %w", err)
	}
	log.Printf("[submit] requeued failed job key=%s", key)

	msg := jobs.Message{
		ArtifactKey:     key,
		CaseID:          in.CaseID,
		TemplateType:    in.TemplateType,
		TemplateVersion: version,
		DataHash:        in.DataHash,
		UserID:          in.UserID,
	}
	if err := s.jobQueue.Send(ctx, msg, map[string]string{"artifact_key": key}); err != nil {
		if ferr := s.jobs.MarkFailed(ctx, key, fmt.Sprintf("enqueue failed: %v", err)); ferr != nil {
			log.Printf("[submit] mark failed after requeue enqueue error key=%s: %v", key, ferr)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}
	return Result{Status: StatusQueued, ArtifactKey: key}, nil
}

// SubmitAndWait submits and, when queued, blocks on the polling fallback
// until the artifact shows up or the wait bound expires. Used by callers
// that want a synchronous answer (the push listener may beat the poll; both
// are no-ops once a terminal state has been observed).
func (s *Service) SubmitAndWait(ctx context.Context, in Input, opts WaitOptions) (Result, error) {
	res, err := s.Submit(ctx, in)
	if err != nil || res.Status == StatusCached {
		return res, err
	}

	if _, err := s.WaitForArtifact(ctx, res.ArtifactKey, opts); err != nil {
		return res, err
	}
	// artifact exists now; resubmit resolves to the cached branch
	return s.Submit(ctx, in)
}

// WaitOptions bounds the polling fallback.
type WaitOptions struct {
	Attempts int
	Interval time.Duration
}

// DefaultWaitOptions matches the 60 x 2s client give-up bound.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{Attempts: 60, Interval: 2 * time.Second}
}
