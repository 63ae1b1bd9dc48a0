package artifact

import (
	"context"
	"testing"
	"time"
)

func TestArtifactWriteOnce(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "pdf-artifacts", "generated-documents")
	ctx := context.Background()

	key, _ := ComputeKey("ABC123", TemplatePOAAdult, "v1", "h1")

	created, err := s.CreateIfNotExists(ctx, Artifact{
		ArtifactKey: key,
		CaseID:      "ABC123",
		StoragePath: "cases/ABC123/" + key + ".pdf",
		SizeBytes:   1024,
	})
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first write")
	}

	// second worker publishing the same key loses quietly
	created2, err := s.CreateIfNotExists(ctx, Artifact{
		ArtifactKey: key,
		CaseID:      "ABC123",
		StoragePath: "cases/ABC123/other.pdf",
		SizeBytes:   2048,
	})
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatal("expected created=false on duplicate write")
	}

	a, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if a == nil {
		t.Fatal("expected artifact, got nil")
	}
	if a.SizeBytes != 1024 {
		t.Fatalf("first write did not win: size=%d", a.SizeBytes)
	}
	if a.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not defaulted")
	}
	if mock.count("pdf-artifacts") != 1 {
		t.Fatalf("expected exactly one artifact row, got %d", mock.count("pdf-artifacts"))
	}
}

func TestGetMissingArtifact(t *testing.T) {
	s := NewStore(newMockDynamo(), "pdf-artifacts", "generated-documents")
	a, err := s.Get(context.Background(), "no-such-key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if a != nil {
		t.Fatalf("expected nil for missing artifact, got %+v", a)
	}
}

func TestAppendAccess_OneRowPerRetrieval(t *testing.T) {
	mock := newMockDynamo()
	s := NewStore(mock, "pdf-artifacts", "generated-documents")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.AppendAccess(ctx, AccessRecord{
			CaseID:       "ABC123",
			TemplateType: TemplateCitizenship,
			Path:         "cases/ABC123/k.pdf",
			UserID:       "user-1",
			ArtifactKey:  "k",
			AccessedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendAccess error: %v", err)
		}
	}

	if got := mock.count("generated-documents"); got != 3 {
		t.Fatalf("expected 3 audit rows, got %d", got)
	}
}
