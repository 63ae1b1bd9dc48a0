package aws

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics emits pipeline counters to CloudWatch. All emission is best-effort:
// a metrics failure must never fail the operation being measured.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
}

// NewMetrics returns a Metrics emitter under the given namespace.
func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{client: client, namespace: namespace}
}

// Count emits a single count datum with one dimension.
func (m *Metrics) Count(ctx context.Context, name, dimName, dimValue string) {
	if m == nil || m.client == nil {
		return
	}
	now := time.Now().UTC()
	one := float64(1)
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Unit:       cwtypes.StandardUnitCount,
				Value:      &one,
				Dimensions: []cwtypes.Dimension{
					{Name: &dimName, Value: &dimValue},
				},
			},
		},
	})
	if err != nil {
		log.Printf("cloudwatch put metric %s failed: %v", name, err)
	}
}

// JobOutcome records a terminal job state (Completed / Failed).
func (m *Metrics) JobOutcome(ctx context.Context, status string) {
	m.Count(ctx, "PDFJobOutcome", "Status", status)
}

// ArtifactLookup records whether a submission was served from the durable
// artifact cache or had to queue a job.
func (m *Metrics) ArtifactLookup(ctx context.Context, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.Count(ctx, "ArtifactLookup", "Outcome", outcome)
}

// CacheLookup records a template-cache hit or miss.
func (m *Metrics) CacheLookup(ctx context.Context, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.Count(ctx, "TemplateCacheLookup", "Outcome", outcome)
}
