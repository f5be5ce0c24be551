package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/internal/runner"
	"github.com/specialistvlad/pipegrid/internal/table"
)

// ExecutionRecord holds the start and end times for a single stage's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// SleeperModule registers the "sleep" runner, which waits, records when it
// ran, and passes its first input through. It is meant for concurrency tests.
type SleeperModule struct {
	Sleep time.Duration

	mu      sync.Mutex
	records map[string]ExecutionRecord
}

type sleepInput struct {
	Fail bool `hcl:"fail,optional"`
}

// Register implements registry.Module.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterRunner("sleep", &registry.RegisteredRunner{
		NewInput:    func() any { return new(sleepInput) },
		Fn:          m.onRunSleep,
		Description: "Test runner that sleeps and records its execution window.",
	})
}

func (m *SleeperModule) onRunSleep(ctx context.Context, in *runner.Inputs, args *sleepInput) (*table.Table, error) {
	start := time.Now()
	select {
	case <-time.After(m.Sleep):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	end := time.Now()

	m.mu.Lock()
	if m.records == nil {
		m.records = make(map[string]ExecutionRecord)
	}
	m.records[in.Stage] = ExecutionRecord{Start: start, End: end}
	m.mu.Unlock()

	if args.Fail {
		return nil, errors.New("sleeper told to fail")
	}
	if len(in.Tables) > 0 {
		return in.Tables[0], nil
	}
	return table.New(), nil
}

// Record returns the execution window of a stage.
func (m *SleeperModule) Record(stage string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[stage]
	return r, ok
}
