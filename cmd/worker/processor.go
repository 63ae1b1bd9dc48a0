package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/artifact"
	awsx "github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/fill"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/jobs"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/storage"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/templates"
)

// CaseDataFetcher loads the structured case data a template is filled from.
type CaseDataFetcher func(ctx context.Context, caseID string) (map[string]interface{}, error)

// Processor consumes generation-job messages and produces artifacts: load
// template (through the cache), fill fields in batches, upload the PDF,
// record the write-once artifact row, then notify.
type Processor struct {
	jobStore      *jobs.Store
	artifactStore *artifact.Store
	loader        *templates.Loader
	objects       *storage.ObjectStore
	signer        *storage.Signer
	notifier      *awsx.Publisher
	engine        fill.Engine
	orchestrator  *fill.Orchestrator
	metrics       *awsx.Metrics
	fetchCaseData CaseDataFetcher
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("worker error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg jobs.Message
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log.Printf("[worker] received key=%s case=%s template=%s corr=%s",
		msg.ArtifactKey, msg.CaseID, msg.TemplateType, msg.CorrelationID)

	// QUEUED -> RUNNING is the claim; losing it means a competing worker or
	// a duplicate delivery, and the job's current state says which.
	err := p.jobStore.UpdateStatus(ctx, msg.ArtifactKey, jobs.StatusQueued, jobs.StatusRunning)
	if err == jobs.ErrStatusMismatch {
		j, gerr := p.jobStore.Get(ctx, msg.ArtifactKey)
		if gerr != nil {
			return fmt.Errorf("fetch job after claim miss: %w", gerr)
		}
		if j == nil {
			return fmt.Errorf("job not found: %s", msg.ArtifactKey)
		}
		switch j.Status {
		case jobs.StatusCompleted:
			log.Printf("[worker] already completed key=%s", msg.ArtifactKey)
			return nil
		case jobs.StatusRunning:
			log.Printf("[worker] duplicate delivery for key=%s", msg.ArtifactKey)
			return nil
		case jobs.StatusFailed:
			return fmt.Errorf("job %s is already FAILED", msg.ArtifactKey)
		default:
			return fmt.Errorf("unexpected status for job %s: %s", msg.ArtifactKey, j.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}

	if err := p.jobStore.IncrementAttempts(ctx, msg.ArtifactKey); err != nil {
		log.Printf("[worker] increment attempts failed key=%s: %v", msg.ArtifactKey, err)
	}

	if err := p.generate(ctx, msg); err != nil {
		// template/data failures are terminal for the job, not for the queue
		if ferr := p.jobStore.MarkFailed(ctx, msg.ArtifactKey, err.Error()); ferr != nil {
			log.Printf("[worker] mark failed key=%s: %v", msg.ArtifactKey, ferr)
		}
		p.metrics.JobOutcome(ctx, jobs.StatusFailed)
		p.notify(ctx, jobs.Notification{
			ArtifactKey:  msg.ArtifactKey,
			Status:       jobs.StatusFailed,
			ErrorMessage: "document generation failed",
		})
		log.Printf("[worker] generation failed key=%s: %v", msg.ArtifactKey, err)
		return nil
	}

	if err := p.jobStore.UpdateStatus(ctx, msg.ArtifactKey, jobs.StatusRunning, jobs.StatusCompleted); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	p.metrics.JobOutcome(ctx, jobs.StatusCompleted)

	log.Printf("[worker] completed key=%s", msg.ArtifactKey)
	return nil
}

// generate does the actual work: template -> filled form -> uploaded,
// recorded, announced artifact.
func (p *Processor) generate(ctx context.Context, msg jobs.Message) error {
	templatePath := fmt.Sprintf("templates/%s/%s", msg.TemplateType, msg.TemplateVersion)
	templateBytes, err := p.loader.Load(ctx, templatePath, msg.TemplateVersion)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	form, err := p.engine.Open(templateBytes)
	if err != nil {
		// the one job-level fatal in the fill stage
		return fmt.Errorf("open template: %w", err)
	}

	data, err := p.fetchCaseData(ctx, msg.CaseID)
	if err != nil {
		return fmt.Errorf("load case data: %w", err)
	}

	res := p.orchestrator.Fill(ctx, form, fieldMapFor(msg.TemplateType), data)
	log.Printf("[worker] fill key=%s total=%d filled=%d empty=%d errors=%d",
		msg.ArtifactKey, res.TotalFields, res.FilledCount, len(res.EmptyFields), len(res.Errors))

	pdfBytes, err := form.Bytes()
	if err != nil {
		return fmt.Errorf("render form: %w", err)
	}

	path := storage.ArtifactPath(msg.CaseID, msg.ArtifactKey)
	if err := p.objects.Upload(ctx, path, pdfBytes, "application/pdf"); err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}

	created, err := p.artifactStore.CreateIfNotExists(ctx, artifact.Artifact{
		ArtifactKey: msg.ArtifactKey,
		CaseID:      msg.CaseID,
		StoragePath: path,
		SizeBytes:   int64(len(pdfBytes)),
	})
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	if !created {
		log.Printf("[worker] artifact already recorded key=%s", msg.ArtifactKey)
	}

	if err := p.artifactStore.AppendAccess(ctx, artifact.AccessRecord{
		CaseID:       msg.CaseID,
		TemplateType: msg.TemplateType,
		Path:         path,
		UserID:       msg.UserID,
		ArtifactKey:  msg.ArtifactKey,
	}); err != nil {
		log.Printf("[worker] audit append failed key=%s: %v", msg.ArtifactKey, err)
	}

	url, err := p.signer.SignGet(ctx, msg.CaseID, path, storage.NotifyURLTTL)
	if err != nil {
		// artifact is durable; the poll fallback will still find it
		log.Printf("[worker] sign notify url failed key=%s: %v", msg.ArtifactKey, err)
		url = ""
	}
	p.notify(ctx, jobs.Notification{
		ArtifactKey: msg.ArtifactKey,
		Status:      jobs.StatusCompleted,
		ArtifactURL: url,
	})
	return nil
}

func (p *Processor) notify(ctx context.Context, n jobs.Notification) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(ctx, n, map[string]string{"artifact_key": n.ArtifactKey}); err != nil {
		// push is best-effort; consumers poll as the fallback
		log.Printf("[worker] notification send failed key=%s: %v", n.ArtifactKey, err)
	}
}

// fieldMapFor returns the field->data-path mapping for a template type.
// Composites are joined before batching so the orchestrator only ever sees
// resolved strings.
func fieldMapFor(templateType string) fill.FieldMap {
	switch templateType {
	case artifact.TemplatePOAAdult, artifact.TemplatePOAMinor:
		return fill.FieldMap{
			"applicant_full_name":  fill.Composite(" ", "applicant.firstName", "applicant.lastName"),
			"applicant_birth_date": fill.Single("applicant.birthDate"),
			"applicant_address":    fill.Composite(", ", "applicant.address.street", "applicant.address.city", "applicant.address.country"),
			"representative_name":  fill.Composite(" ", "representative.firstName", "representative.lastName"),
			"case_reference":       fill.Single("case.reference"),
			"signature_city":       fill.Single("applicant.address.city"),
		}
	case artifact.TemplateCitizenship:
		return fill.FieldMap{
			"applicant_full_name":   fill.Composite(" ", "applicant.firstName", "applicant.lastName"),
			"applicant_birth_date":  fill.Single("applicant.birthDate"),
			"applicant_birth_place": fill.Single("applicant.birthPlace"),
			"father_full_name":      fill.Composite(" ", "father.firstName", "father.lastName"),
			"mother_full_name":      fill.Composite(" ", "mother.firstName", "mother.maidenName"),
			"mother_maiden_name":    fill.Single("mother.maidenName"),
			"case_reference":        fill.Single("case.reference"),
		}
	case artifact.TemplateFamilyTree:
		return fill.FieldMap{
			"applicant_full_name":   fill.Composite(" ", "applicant.firstName", "applicant.lastName"),
			"father_full_name":      fill.Composite(" ", "father.firstName", "father.lastName"),
			"mother_full_name":      fill.Composite(" ", "mother.firstName", "mother.maidenName"),
			"grandfather_full_name": fill.Composite(" ", "grandfather.firstName", "grandfather.lastName"),
			"grandmother_full_name": fill.Composite(" ", "grandmother.firstName", "grandmother.maidenName"),
		}
	default:
		return fill.FieldMap{}
	}
}
