// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Defaults applied when neither the binding nor the command line sets a value.
const (
	DefaultWorkers = 4
	DefaultRunner  = "passthrough"
)

// Model is the complete, merged binding configuration of one pipeline.
type Model struct {
	// Pipeline holds pipeline-wide settings. It is never nil after loading.
	Pipeline *Pipeline
	// Stages maps a diagram node identifier to its binding.
	Stages map[string]*Stage
}

// NewModel returns an empty model with default pipeline settings.
func NewModel() *Model {
	return &Model{
		Pipeline: &Pipeline{},
		Stages:   make(map[string]*Stage),
	}
}

// Pipeline holds the settings of a `pipeline` block.
type Pipeline struct {
	Name string
	// Diagram is the path of the DOT file, already resolved against the
	// directory of the file that declared it.
	Diagram string
	// Workers is zero when unset.
	Workers int
	// FailFast and StrictBindings are nil when unset.
	FailFast       *bool
	StrictBindings *bool
	// Vars are exposed to argument expressions as `var.<name>`.
	Vars map[string]string
	// SourceFile is the file the block was declared in.
	SourceFile string
}

// Stage binds one diagram node to a runner.
type Stage struct {
	// ID is the diagram node identifier this binding applies to.
	ID     string
	Runner string
	// Inputs optionally selects and orders upstream stages by node identifier.
	// When empty, every direct dependency is passed in diagram edge order.
	Inputs  []string
	Timeout time.Duration
	// Arguments is the raw body of the `arguments` block, decoded lazily by a
	// Converter once the evaluation context of a run is known.
	Arguments hcl.Body
	// BaseDir is the directory of the declaring file; runners resolve relative
	// paths against it.
	BaseDir   string
	DeclRange hcl.Range
}

// RunnerName returns the runner to execute for a possibly-nil binding.
func (s *Stage) RunnerName() string {
	if s == nil || s.Runner == "" {
		return DefaultRunner
	}
	return s.Runner
}

// BoolOr returns *b, or def when b is nil.
func BoolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
