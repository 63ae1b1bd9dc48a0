package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/artifact"
	awsx "github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/handlers"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/jobs"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/locks"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/storage"
	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/submission"
)

func setupRouter(pdfCfg handlers.PDFHandlerConfig, lockCfg handlers.LockHandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterPDFRoutes(r, pdfCfg)
	handlers.RegisterLockRoutes(r, lockCfg)

	return r
}

func main() {
	clients, err := awsx.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	artifactStore := artifact.NewStore(clients.DynamoDB, os.Getenv("ARTIFACTS_TABLE"), os.Getenv("AUDIT_TABLE"))
	jobStore := jobs.NewStore(clients.DynamoDB, os.Getenv("JOBS_TABLE"))
	signer := storage.NewSigner(clients.Presign, os.Getenv("ARTIFACTS_BUCKET"))
	jobQueue := awsx.NewPublisher(clients.SQS, os.Getenv("JOBS_QUEUE_URL"))
	metrics := awsx.NewMetrics(clients.CloudWatch, "CitizenshipPDFPipeline")

	service := submission.NewService(artifactStore, jobStore, signer, jobQueue, metrics, nil)
	lockManager := locks.NewManager(clients.DynamoDB, os.Getenv("DOCUMENTS_TABLE"))

	r := setupRouter(
		handlers.PDFHandlerConfig{Service: service},
		handlers.LockHandlerConfig{Manager: lockManager},
	)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		// locally the API process also consumes completion pushes; deployed,
		// a separate consumer owns the notification queue
		if q := os.Getenv("NOTIFICATIONS_QUEUE_URL"); q != "" {
			listener := submission.NewCompletionListener(clients.SQS, q, func(ctx context.Context, n jobs.Notification) {
				log.Printf("job finished key=%s status=%s", n.ArtifactKey, n.Status)
			})
			go func() {
				if err := listener.Run(context.Background()); err != nil {
					log.Printf("completion listener stopped: %v", err)
				}
			}()
		}

		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
