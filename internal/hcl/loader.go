package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/pipegrid/internal/config"
	"github.com/specialistvlad/pipegrid/internal/ctxlog"
	"github.com/specialistvlad/pipegrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Getenv is used for the `env` variable available at load time. Nil
	// means the process environment.
	Getenv func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load finds every .hcl file under paths, decodes the pipeline and stage
// blocks, and merges them into one model. Paths that do not exist are
// skipped; a run without bindings executes every stage as passthrough.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	conv := NewConverter()
	conv.Getenv = l.Getenv
	loadCtx := conv.loadContext()

	model := config.NewModel()
	var pipelineRange *hcl.Range
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, loadCtx, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		baseDir := filepath.Dir(file)
		for _, p := range root.Pipelines {
			if pipelineRange != nil {
				return nil, nil, diagError("Duplicate pipeline block",
					fmt.Sprintf("A pipeline block was already declared at %s.", pipelineRange), p.DeclRange)
			}
			r := p.DeclRange
			pipelineRange = &r
			model.Pipeline = translatePipeline(p, file, baseDir)
		}
		for _, s := range root.Stages {
			if prev, ok := model.Stages[s.ID]; ok {
				return nil, nil, diagError("Duplicate stage binding",
					fmt.Sprintf("Stage %q was already bound at %s.", s.ID, prev.DeclRange), s.DeclRange)
			}
			stage, err := translateStage(s, baseDir)
			if err != nil {
				return nil, nil, err
			}
			model.Stages[s.ID] = stage
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "stages", len(model.Stages), "pipeline", model.Pipeline.Name)
	return model, conv, nil
}

func translatePipeline(p *pipelineBlock, file, baseDir string) *config.Pipeline {
	out := &config.Pipeline{
		Name:           p.Name,
		FailFast:       p.FailFast,
		StrictBindings: p.StrictBindings,
		Vars:           p.Vars,
		SourceFile:     file,
	}
	if p.Diagram != nil && *p.Diagram != "" {
		out.Diagram = *p.Diagram
		if !filepath.IsAbs(out.Diagram) {
			out.Diagram = filepath.Join(baseDir, out.Diagram)
		}
	}
	if p.Workers != nil {
		out.Workers = *p.Workers
	}
	return out
}

func translateStage(s *stageBlock, baseDir string) (*config.Stage, error) {
	out := &config.Stage{
		ID:        s.ID,
		Inputs:    s.Inputs,
		BaseDir:   baseDir,
		DeclRange: s.DeclRange,
	}
	if s.Runner != nil {
		out.Runner = *s.Runner
	}
	if s.Arguments != nil {
		out.Arguments = s.Arguments.Body
	}
	if s.Timeout != nil && *s.Timeout != "" {
		d, err := time.ParseDuration(*s.Timeout)
		if err != nil || d <= 0 {
			return nil, diagError("Invalid stage timeout",
				fmt.Sprintf("Timeout %q of stage %q must be a positive duration such as \"30s\".", *s.Timeout, s.ID), s.DeclRange)
		}
		out.Timeout = d
	}
	return out, nil
}

// diagError wraps a single diagnostic pointing at subject.
func diagError(summary, detail string, subject hcl.Range) error {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  &subject,
	}}
}
