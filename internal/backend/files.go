package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/consoled-dev/consoled/internal/session"
)

// defaultFileTTL is applied when an upload does not specify an expiry:
// exactly 365 days from the time of the call.
const defaultFileTTL = 365 * 24 * time.Hour

// ttlDateFormat is the backend's expected TTL date format
const ttlDateFormat = "2006-01-02"

// Upload represents one file to be forwarded to the backend
type Upload struct {
	Name string
	TTL  string // YYYY-MM-DD, empty means default
	Data []byte
}

// fileMetadata is the per-file metadata the backend expects alongside uploads
type fileMetadata struct {
	Name string `json:"name"`
	TTL  string `json:"ttl"`
}

// DefaultTTL returns the default expiry date for files uploaded now
func DefaultTTL(now time.Time) string {
	return now.Add(defaultFileTTL).Format(ttlDateFormat)
}

// UploadFiles forwards files to the backend as a multipart form: one "files"
// part per file plus one "metadata" field per file carrying {name, ttl} as a
// JSON string. The Content-Type comes from the multipart writer so the
// boundary is correct.
func (c *Client) UploadFiles(ctx context.Context, sess *session.Session, path string, uploads []Upload) (*http.Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, upload := range uploads {
		part, err := writer.CreateFormFile("files", upload.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, bytes.NewReader(upload.Data)); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}

		ttl := upload.TTL
		if ttl == "" {
			ttl = DefaultTTL(time.Now())
		}
		metadata, err := json.Marshal(fileMetadata{Name: upload.Name, TTL: ttl})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal file metadata: %w", err)
		}
		if err := writer.WriteField("metadata", string(metadata)); err != nil {
			return nil, fmt.Errorf("failed to write metadata field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	return c.Do(ctx, sess, http.MethodPost, path, buf.Bytes(), writer.FormDataContentType())
}
