package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxEvidenceBytes caps a single evidence upload.
const MaxEvidenceBytes = 10 << 20

// EvidenceTypes are the MIME types accepted as report evidence.
var EvidenceTypes = []string{"image/*", "application/pdf", "text/plain"}

// UploadResult contains the result of an upload operation
type UploadResult struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Storage is the object store used for evidence files.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	GetURL(key string) string
}

// GenerateEvidenceKey builds a unique key for a file attached by reporterID to
// a report on orderID.
func GenerateEvidenceKey(reporterID, orderID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("reports/%s/%s/%s_%s%s",
		orderID.String(),
		reporterID.String(),
		time.Now().UTC().Format("20060102"),
		uuid.New().String()[:8],
		ext,
	)
}

// ValidateMimeType checks mimeType against allowedTypes. "image/*" style
// wildcards match a whole family.
func ValidateMimeType(mimeType string, allowedTypes []string) bool {
	if len(allowedTypes) == 0 {
		return true
	}

	mimeType = strings.ToLower(mimeType)
	for _, allowed := range allowedTypes {
		allowed = strings.ToLower(allowed)
		if allowed == mimeType {
			return true
		}
		if strings.HasSuffix(allowed, "/*") && strings.HasPrefix(mimeType, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

// GetMimeTypeFromExtension returns the MIME type for common file extensions
func GetMimeTypeFromExtension(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
