package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/logger"
	"github.com/richxcame/gigmarket/pkg/storage"
	"go.uber.org/zap"
)

// maxEvidenceFiles caps the files accepted in one submission
const maxEvidenceFiles = 5

// uploadEvidence stores each file and records its outcome. A failed upload
// never aborts the submission.
func (s *Service) uploadEvidence(ctx context.Context, reporterID, orderID uuid.UUID, files []EvidenceFile) ([]string, []Upload) {
	if len(files) == 0 {
		return nil, nil
	}

	urls := make([]string, 0, len(files))
	uploads := make([]Upload, 0, len(files))
	for i, f := range files {
		up := Upload{Name: f.Name}
		url, err := s.storeOne(ctx, reporterID, orderID, f, i)
		if err != nil {
			up.Error = err.Error()
			logger.WithContext(ctx).Warn("evidence upload failed",
				zap.String("order_id", orderID.String()),
				zap.String("file", f.Name),
				zap.Error(err),
			)
		} else {
			up.URL = url
			urls = append(urls, url)
		}
		uploads = append(uploads, up)
	}
	return urls, uploads
}

func (s *Service) storeOne(ctx context.Context, reporterID, orderID uuid.UUID, f EvidenceFile, index int) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("evidence storage is not configured")
	}
	if index >= maxEvidenceFiles {
		return "", fmt.Errorf("at most %d files are accepted", maxEvidenceFiles)
	}
	if f.Size > storage.MaxEvidenceBytes {
		return "", fmt.Errorf("file exceeds %d bytes", storage.MaxEvidenceBytes)
	}

	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.GetMimeTypeFromExtension(f.Name)
	}
	if !storage.ValidateMimeType(contentType, storage.EvidenceTypes) {
		return "", fmt.Errorf("unsupported file type %s", contentType)
	}

	body, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer body.Close()

	res, err := s.storage.Upload(ctx, storage.GenerateEvidenceKey(reporterID, orderID, f.Name), body, f.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return res.URL, nil
}
