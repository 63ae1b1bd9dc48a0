package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/artifact"
	awsx "github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/fill"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/jobs"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/storage"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/templates"
)

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func newProcessor(clients *awsx.AWSClients) *Processor {
	cache := templates.NewCache(
		envInt("TEMPLATE_CACHE_MAX_ITEMS", 32),
		int64(envInt("TEMPLATE_CACHE_MAX_MB", 64))<<20,
	)
	metrics := awsx.NewMetrics(clients.CloudWatch, "CitizenshipPDFPipeline")
	objects := storage.NewObjectStore(clients.S3, os.Getenv("ARTIFACTS_BUCKET"))

	return &Processor{
		jobStore:      jobs.NewStore(clients.DynamoDB, os.Getenv("JOBS_TABLE")),
		artifactStore: artifact.NewStore(clients.DynamoDB, os.Getenv("ARTIFACTS_TABLE"), os.Getenv("AUDIT_TABLE")),
		loader:        templates.NewLoader(clients.S3, os.Getenv("TEMPLATES_BUCKET"), cache, metrics),
		objects:       objects,
		signer:        storage.NewSigner(clients.Presign, os.Getenv("ARTIFACTS_BUCKET")),
		notifier:      awsx.NewPublisher(clients.SQS, os.Getenv("NOTIFICATIONS_QUEUE_URL")),
		engine:        fill.NewMemEngine(),
		orchestrator:  fill.NewOrchestrator(fill.DefaultBatchSize),
		metrics:       metrics,
		fetchCaseData: func(ctx context.Context, caseID string) (map[string]interface{}, error) {
			raw, err := objects.Download(ctx, fmt.Sprintf("cases/%s/data.json", caseID))
			if err != nil {
				return nil, err
			}
			var data map[string]interface{}
			if err := json.Unmarshal(raw, &data); err != nil {
				return nil, fmt.Errorf("parse case data for %s: %w", caseID, err)
			}
			return data, nil
		},
	}
}

func main() {
	clients, err := awsx.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	p := newProcessor(clients)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"artifact_key":"local-key-1","case_id":"LOCAL1","template_type":"poa-adult","template_version":"v1","user_id":"local-user"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
