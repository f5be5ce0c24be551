// Package httpcsv provides runners that move tables over HTTP: http_read
// fetches a CSV document and s3_upload PUTs a table to a pre-signed URL.
// Both share one *http.Client so connections are reused across stages.
package httpcsv

import (
	"net/http"
	"time"

	"github.com/specialistvlad/pipegrid/internal/registry"
)

// Module implements the registry.Module interface. It's the main entrypoint
// for the httpcsv module, responsible for registering all of its runners with
// the application's registry.
type Module struct {
	// Client is shared by every stage. Nil means NewClient(30 * time.Second).
	Client *http.Client
}

// NewClient returns a client with connection pooling configured.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Register registers all of the module's runners with the central registry.
func (m *Module) Register(r *registry.Registry) {
	if m.Client == nil {
		m.Client = NewClient(30 * time.Second)
	}
	h := &handlers{client: m.Client}

	r.RegisterRunner("http_read", &registry.RegisteredRunner{
		NewInput:    func() any { return new(ReadInput) },
		Fn:          h.onRunHTTPRead,
		Description: "Fetch a CSV document over HTTP into a table.",
	})
	r.RegisterRunner("s3_upload", &registry.RegisteredRunner{
		NewInput:    func() any { return new(UploadInput) },
		Fn:          h.onRunS3Upload,
		Description: "PUT the upstream table as CSV to a pre-signed URL.",
	})
}

type handlers struct {
	client *http.Client
}
