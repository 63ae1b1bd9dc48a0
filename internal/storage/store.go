package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
)

// ObjectStore wraps the artifact bucket: generated PDFs go up, nothing ever
// comes back down except through signed URLs.
type ObjectStore struct {
	client aws.S3API
	bucket string
}

// NewObjectStore returns an ObjectStore over bucket.
func NewObjectStore(client aws.S3API, bucket string) *ObjectStore {
	return &ObjectStore{client: client, bucket: bucket}
}

// Upload writes data to key with the given content type.
func (o *ObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &o.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Download fetches an object's bytes. Used by maintenance tooling and tests;
// the serving path hands out signed URLs instead.
func (o *ObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &o.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// ArtifactPath builds the canonical object key for a generated PDF. The case
// id is a path segment, which is why submissions are pattern-checked before
// any storage path is assembled.
func ArtifactPath(caseID, artifactKey string) string {
	return fmt.Sprintf("cases/%s/%s.pdf", caseID, artifactKey)
}
