package app

import (
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultWatchDebounce is how long watch mode waits for file events to settle.
const DefaultWatchDebounce = 300 * time.Millisecond

// Config holds all the necessary configuration for an App instance to run.
// Zero values mean "not set on the command line"; the pipeline block of the
// binding files, then built-in defaults, fill them in.
type Config struct {
	// DiagramPath is the DOT file. It may be omitted when a pipeline block
	// names the diagram.
	DiagramPath string `validate:"required_without=BindingPaths"`
	// BindingPaths are .hcl files or directories searched recursively.
	BindingPaths []string `validate:"dive,required"`

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"min=0,max=65535"`
	WorkerCount     int    `validate:"omitempty,min=1"`
	FailFast        *bool

	// ReportPath receives a YAML or JSON run report; RenderPath a DOT file
	// coloured by stage status.
	ReportPath string
	RenderPath string

	Watch         bool
	WatchDebounce time.Duration `validate:"min=0"`

	// LogOutput receives logs. Nil means the app output writer.
	LogOutput io.Writer `validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig fills defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Watch && cfg.WatchDebounce == 0 {
		cfg.WatchDebounce = DefaultWatchDebounce
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
