// Package socketio provides the socketio_emit runner, which publishes the
// rows of a table to a Socket.IO server.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds connecting and waiting for the ack event.
const DefaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the socketio_emit runner.
type Input struct {
	URL       string `hcl:"url" validate:"required,url"`
	Namespace string `hcl:"namespace,optional"`
	Event     string `hcl:"event" validate:"required"`
	// AckEvent, when set, is the server event that confirms receipt.
	AckEvent           string `hcl:"ack_event,optional"`
	Timeout            string `hcl:"timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	ack any
	err error
}

// OnRunSocketIOEmit is the handler for the 'socketio_emit' runner. It emits
// the input rows as a list of objects once connected and returns the input
// table.
func OnRunSocketIOEmit(ctx context.Context, in *runner.Inputs, input *Input) (*table.Table, error) {
	src, err := in.One()
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("runner", "socketio_emit", "url", input.URL, "event", input.Event, "ackEvent", input.AckEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	timeout := DefaultTimeout
	if input.Timeout != "" {
		if timeout, err = time.ParseDuration(input.Timeout); err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", input.Timeout, err)
		}
	}
	payload := Rows(src)

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	namespace := input.Namespace
	if namespace == "" {
		namespace = "/"
	}

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected", "namespace", namespace, "sid", io.Id())
		if data, err := json.Marshal(payload); err == nil {
			logger.Debug("Emitting event", "rows", len(payload), "bytes", len(data))
		}
		io.Emit(input.Event, payload)
		if input.AckEvent == "" {
			finish(opResult{})
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connect error: %w", e)
			}
		}
		finish(opResult{err: err})
	})

	if input.AckEvent != "" {
		io.On(types.EventName(input.AckEvent), func(data ...any) {
			var ack any
			if len(data) > 0 {
				ack = data[0]
			}
			finish(opResult{ack: ack})
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event '%s'", input.AckEvent)
		}
		return nil, fmt.Errorf("timed out while waiting for initial connection")
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		logger.Info("Rows emitted", "rows", len(payload), "ack", res.ack)
		return src, nil
	}
}

// Rows converts a table into JSON-friendly objects. Numbers keep their exact
// decimal text.
func Rows(t *table.Table) []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		obj := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			obj[c] = jsonValue(row[j])
		}
		out[i] = obj
	}
	return out
}

func jsonValue(v cty.Value) any {
	switch {
	case v.IsNull():
		return nil
	case v.Type() == cty.Number:
		return json.Number(table.Format(v))
	case v.Type() == cty.Bool:
		return v.True()
	}
	return table.Format(v)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("socketio_emit", &registry.RegisteredRunner{
		NewInput:    func() any { return new(Input) },
		Fn:          OnRunSocketIOEmit,
		Description: "Emit the upstream rows to a Socket.IO server.",
	})
}
