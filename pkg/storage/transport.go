package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoReference means a signed reference for the object could not be issued.
	ErrNoReference = errors.New("signed reference unavailable")
)

// TransferError is a non-success response from the object store.
type TransferError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *TransferError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.StatusCode)
}

// Transport moves object bodies between the video bucket and this process.
// Implementations differ only in how bytes travel; callers see one contract.
type Transport interface {
	// Download opens the object body. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Upload stores body under key and returns the resolved object key.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Remove deletes the object.
	Remove(ctx context.Context, key string) error
}

// Presigner issues signed references and deletes objects. *S3 implements it.
type Presigner interface {
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

// NewTransport selects the transport by name: "sdk" uses the S3 API client,
// anything else streams through signed URLs.
func NewTransport(kind string, s *S3, bucket string) Transport {
	if kind == "sdk" {
		return NewSDKTransport(s, bucket)
	}
	return NewSignedURLTransport(s, bucket, s.SignedURLTTL(), nil)
}

// SignedURLTransport streams bodies over plain HTTP against pre-signed URLs.
type SignedURLTransport struct {
	presigner Presigner
	bucket    string
	ttl       time.Duration
	client    *http.Client
}

// NewSignedURLTransport creates a transport that never buffers whole objects.
// A nil client uses http.DefaultClient.
func NewSignedURLTransport(p Presigner, bucket string, ttl time.Duration, client *http.Client) *SignedURLTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLTransport{presigner: p, bucket: bucket, ttl: ttl, client: client}
}

// Download issues a signed GET reference and streams the response body.
func (t *SignedURLTransport) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	url, err := t.presigner.PresignGet(ctx, t.bucket, key, t.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoReference, err)
	}
	if url == "" {
		return nil, ErrNoReference
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &TransferError{Op: "download", StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	return resp.Body, nil
}

// Upload issues a signed PUT reference and sends body as-is.
func (t *SignedURLTransport) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	url, err := t.presigner.PresignPut(ctx, t.bucket, key, contentType, t.ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoReference, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	// Signed PUTs reject chunked encoding.
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransferError{Op: "upload", StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return key, nil
}

// Remove deletes the object directly.
func (t *SignedURLTransport) Remove(ctx context.Context, key string) error {
	return t.presigner.DeleteObject(ctx, t.bucket, key)
}

// SDKTransport moves bodies through the S3 API client.
type SDKTransport struct {
	s3     *S3
	bucket string
}

// NewSDKTransport creates a transport backed by GetObject and the multipart uploader.
func NewSDKTransport(s *S3, bucket string) *SDKTransport {
	return &SDKTransport{s3: s, bucket: bucket}
}

// Download opens the object body via GetObject.
func (t *SDKTransport) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return t.s3.GetObjectStream(ctx, t.bucket, key)
}

// Upload sends body through the multipart uploader.
func (t *SDKTransport) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if err := t.s3.Upload(ctx, t.bucket, key, contentType, body, size); err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes the object.
func (t *SDKTransport) Remove(ctx context.Context, key string) error {
	return t.s3.DeleteObject(ctx, t.bucket, key)
}

// readMessage returns a short trimmed prefix of an error response body.
func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(b))
}
