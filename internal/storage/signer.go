package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/romanwi-dev/citizenship-pdf-pipeline/internal/aws"
)

// Signed-URL expiry bounds. Submit-path URLs are short; worker notification
// URLs get longer since the client may pick them up after a polling backoff.
const (
	SubmitURLTTL = 10 * time.Minute
	NotifyURLTTL = 45 * time.Minute
)

// ErrUntrustedURL is returned when a URL fails the host/path shape check.
var ErrUntrustedURL = errors.New("signed url does not match expected bucket host and case path")

// Signer issues and validates time-bounded signed GET URLs for artifacts.
type Signer struct {
	presign aws.PresignAPI
	bucket  string
}

// NewSigner returns a Signer for bucket.
func NewSigner(presign aws.PresignAPI, bucket string) *Signer {
	return &Signer{presign: presign, bucket: bucket}
}

// SignGet creates a signed GET URL for key, valid for ttl. The result is
// validated against the expected shape before it is returned: a URL we would
// not trust from outside is not one we hand out either.
func (s *Signer) SignGet(ctx context.Context, caseID, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	if err := s.Validate(req.URL, caseID); err != nil {
		return "", err
	}
	return req.URL, nil
}

// Validate rejects any URL that is not HTTPS, not on the artifact bucket's
// host, or not scoped to the case's path prefix. This is a hard boundary
// check, run before any signed URL is used or handed to a client.
func (s *Signer) Validate(raw, caseID string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse signed url: %w", err)
	}
	if u.Scheme != "https" {
		return ErrUntrustedURL
	}
	if !strings.Contains(u.Host, s.bucket) {
		return ErrUntrustedURL
	}
	// both virtual-hosted and path-style addressing end with the object key
	if !strings.Contains(u.Path, "/cases/"+caseID+"/") {
		return ErrUntrustedURL
	}
	return nil
}
