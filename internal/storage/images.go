package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

// ImageSource resolves image references into raw bytes. Receipts arrive as
// gs:// URIs, http(s) URLs, data URIs, or bare base64 payloads.
type ImageSource interface {
	// Fetch resolves an image reference and returns its bytes and MIME type.
	Fetch(ctx context.Context, ref string) ([]byte, string, error)

	// Archive stores raw image bytes under the given object name and
	// returns the gs:// URI of the stored copy.
	Archive(ctx context.Context, objectName string, data []byte) (string, error)
}

// ImageStore fetches images from cloud storage and the public web, and
// archives processed receipts into a bucket.
type ImageStore struct {
	client *gcs.Client
	bucket string
	http   *http.Client
}

// NewImageStore creates an ImageStore archiving into the given bucket.
func NewImageStore(ctx context.Context, bucket string) (*ImageStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewImageStore: creating storage client: %w", err)
	}

	return &ImageStore{
		client: client,
		bucket: bucket,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Close releases the underlying storage client.
func (s *ImageStore) Close() error {
	return s.client.Close()
}

const maxImageBytes = 10 << 20

// Fetch resolves an image reference. Supported forms, tried in order:
// gs:// object URIs, http(s) URLs, data: URIs, and bare base64 payloads.
func (s *ImageStore) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "gs://"):
		data, err := s.fetchObject(ctx, ref)
		if err != nil {
			return nil, "", err
		}
		return data, mimeFromName(ref), nil

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return s.fetchHTTP(ctx, ref)

	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)

	default:
		data, err := base64.StdEncoding.DecodeString(ref)
		if err != nil {
			return nil, "", fmt.Errorf("Fetch: unrecognized image reference")
		}
		return data, http.DetectContentType(data), nil
	}
}

// Archive writes the image into the configured bucket.
func (s *ImageStore) Archive(ctx context.Context, objectName string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("Archive: writing object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: closing object %s: %w", objectName, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

func (s *ImageStore) fetchObject(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := splitObjectURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchObject: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("fetchObject: reading bytes: %w", err)
	}
	return data, nil
}

func (s *ImageStore) fetchHTTP(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetchHTTP: building request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetchHTTP: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetchHTTP: fetching %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("fetchHTTP: reading body: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// splitObjectURI splits "gs://bucket/path/to/object" into bucket and path.
func splitObjectURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("splitObjectURI: malformed object URI %q", uri)
	}
	return parts[0], parts[1], nil
}

// decodeDataURI parses "data:<mime>;base64,<payload>".
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return nil, "", fmt.Errorf("decodeDataURI: missing payload separator")
	}

	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decodeDataURI: decoding payload: %w", err)
	}
	return data, mime, nil
}

func mimeFromName(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".webp"):
		return "image/webp"
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}
