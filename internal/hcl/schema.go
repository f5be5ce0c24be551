package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all top-level blocks of a binding file.
type fileRoot struct {
	Pipelines []*pipelineBlock `hcl:"pipeline,block"`
	Stages    []*stageBlock    `hcl:"stage,block"`
}

type pipelineBlock struct {
	Name           string            `hcl:"name,label"`
	Diagram        *string           `hcl:"diagram,optional"`
	Workers        *int              `hcl:"workers,optional"`
	FailFast       *bool             `hcl:"fail_fast,optional"`
	StrictBindings *bool             `hcl:"strict_bindings,optional"`
	Vars           map[string]string `hcl:"vars,optional"`
	DeclRange      hcl.Range         `hcl:",def_range"`
}

type stageBlock struct {
	ID        string          `hcl:"id,label"`
	Runner    *string         `hcl:"runner,optional"`
	Inputs    []string        `hcl:"inputs,optional"`
	Timeout   *string         `hcl:"timeout,optional"`
	Arguments *argumentsBlock `hcl:"arguments,block"`
	DeclRange hcl.Range       `hcl:",def_range"`
}

type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}
