package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
)

// Loader fronts the template bucket with the in-process cache. Workers ask it
// for template bytes; only cache misses touch S3.
type Loader struct {
	s3      aws.S3API
	bucket  string
	cache   *Cache
	metrics *aws.Metrics
}

// NewLoader returns a Loader over bucket using cache. metrics may be nil.
func NewLoader(s3Client aws.S3API, bucket string, cache *Cache, metrics *aws.Metrics) *Loader {
	return &Loader{
		s3:      s3Client,
		bucket:  bucket,
		cache:   cache,
		metrics: metrics,
	}
}

// Load returns the template bytes for path at the expected version. On a
// cache miss the object is fetched from S3 and cached under that version.
func (l *Loader) Load(ctx context.Context, path, version string) ([]byte, error) {
	if data, ok := l.cache.Get(path, version); ok {
		l.metrics.CacheLookup(ctx, true)
		return data, nil
	}
	l.metrics.CacheLookup(ctx, false)

	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &l.bucket,
		Key:    &path,
	})
	if err != nil {
		return nil, fmt.Errorf("download template %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	l.cache.Set(path, data, version)
	return data, nil
}
