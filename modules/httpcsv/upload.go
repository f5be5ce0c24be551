package httpcsv

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// UploadInput defines the arguments of s3_upload.
type UploadInput struct {
	UploadURL   string `hcl:"upload_url" validate:"required,url"`
	ContentType string `hcl:"content_type,optional"`
}

// onRunS3Upload serialises its single input as CSV and uploads it with a PUT
// to a pre-signed URL. The upload succeeds only on 200 OK.
func (h *handlers) onRunS3Upload(ctx context.Context, in *runner.Inputs, input *UploadInput) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	var body bytes.Buffer
	if err := table.WriteCSV(&body, src, table.CSVOptions{}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, input.UploadURL, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 upload request: %w", err)
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = "text/csv"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(body.Len())

	logger.Info("Uploading table to S3", "rows", src.Len(), "size", body.Len(), "contentType", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded table", "status", resp.Status)
	return src, nil
}
