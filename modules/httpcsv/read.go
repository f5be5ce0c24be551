package httpcsv

import (
	"context"
	"fmt"
	"net/http"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// ReadInput defines the arguments of http_read.
type ReadInput struct {
	URL           string            `hcl:"url" validate:"required,url"`
	Method        string            `hcl:"method,optional" validate:"omitempty,oneof=GET POST"`
	Headers       map[string]string `hcl:"headers,optional"`
	Delimiter     string            `hcl:"delimiter,optional" validate:"omitempty,len=1"`
	StringColumns []string          `hcl:"string_columns,optional"`
}

// onRunHTTPRead is the handler for the 'http_read' runner.
func (h *handlers) onRunHTTPRead(ctx context.Context, in *runner.Inputs, input *ReadInput) (*table.Table, error) {
	method := input.Method
	if method == "" {
		method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx).With("method", method, "url", input.URL)
	logger.Info("Making HTTP request")

	req, err := http.NewRequestWithContext(ctx, method, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range input.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request failed with status: %s", resp.Status)
	}

	opts := table.CSVOptions{StringColumns: input.StringColumns}
	if input.Delimiter != "" {
		opts.Delimiter = []rune(input.Delimiter)[0]
	}
	t, err := table.ReadCSV(resp.Body, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return t, nil
}
