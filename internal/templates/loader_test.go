package templates

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockS3 struct {
	objects map[string][]byte
	gets    int
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.gets++
	data, ok := m.objects[*params.Key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", *params.Key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func TestLoader_MissFetchesThenCaches(t *testing.T) {
	s3mock := &mockS3{objects: map[string][]byte{
		"templates/poa-adult/v1": []byte("template-bytes"),
	}}
	loader := NewLoader(s3mock, "templates-bucket", NewCache(4, 1<<20), nil)
	ctx := context.Background()

	data, err := loader.Load(ctx, "templates/poa-adult/v1", "v1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "template-bytes" {
		t.Fatalf("wrong bytes: %q", data)
	}
	if s3mock.gets != 1 {
		t.Fatalf("expected 1 S3 get, saw %d", s3mock.gets)
	}

	// second load is served from the cache
	if _, err := loader.Load(ctx, "templates/poa-adult/v1", "v1"); err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if s3mock.gets != 1 {
		t.Fatalf("cache miss on warm path: %d gets", s3mock.gets)
	}

	// version bump forces a refetch
	if _, err := loader.Load(ctx, "templates/poa-adult/v1", "v2"); err != nil {
		t.Fatalf("versioned Load: %v", err)
	}
	if s3mock.gets != 2 {
		t.Fatalf("version bump should refetch, saw %d gets", s3mock.gets)
	}
}

func TestLoader_MissingTemplateErrors(t *testing.T) {
	loader := NewLoader(&mockS3{objects: map[string][]byte{}}, "templates-bucket", NewCache(4, 1<<20), nil)
	if _, err := loader.Load(context.Background(), "templates/nope/v1", "v1"); err == nil {
		t.Fatal("expected error for missing template")
	}
}
