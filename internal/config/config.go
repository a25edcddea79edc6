// Package config provides configuration loading and validation for formdrill.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// PayloadField is one ordered (name, value) pair of the base submission
// template. Order is preserved from the config file; names may repeat.
type PayloadField struct {
	Name  string `mapstructure:"field"`
	Value string `mapstructure:"value"`
}

// TracingConfig configures the optional OTLP trace export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

// Config is the immutable run configuration, built once from defaults, an
// optional config file and CLI flags.
type Config struct {
	PageURL      string         `mapstructure:"page"`
	EndpointURL  string         `mapstructure:"endpoint"`
	Marker       string         `mapstructure:"marker"`
	UserAgent    string         `mapstructure:"user_agent"`
	BasePayload  []PayloadField `mapstructure:"payload"`
	Reps         int            `mapstructure:"reps"`
	Parallel     bool           `mapstructure:"parallel"`
	Workers      int            `mapstructure:"workers"`
	Delay        time.Duration  `mapstructure:"delay"`
	DelayStart   time.Duration  `mapstructure:"delay_start"`
	Headless     bool           `mapstructure:"headless"`
	WaitSelector string         `mapstructure:"wait_selector"`
	NavTimeout   time.Duration  `mapstructure:"timeout"`
	Rate         int            `mapstructure:"rate"`
	JSONOutput   bool           `mapstructure:"json_output"`
	Verbose      bool           `mapstructure:"verbose"`
	Tracing      TracingConfig  `mapstructure:"tracing"`
	ConfigFile   string         `mapstructure:"-"`
}

// ValidationError aggregates all configuration problems found in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string
	var warnings []string

	if strings.TrimSpace(c.PageURL) == "" {
		issues = append(issues, "page is required (use --help for usage information)")
	} else if !isAbsoluteURL(c.PageURL) {
		issues = append(issues, fmt.Sprintf("page must be an absolute http(s) URL, got %q", c.PageURL))
	}
	if strings.TrimSpace(c.EndpointURL) == "" {
		issues = append(issues, "endpoint is required")
	} else if !isAbsoluteURL(c.EndpointURL) {
		issues = append(issues, fmt.Sprintf("endpoint must be an absolute http(s) URL, got %q", c.EndpointURL))
	}

	if c.Reps < 1 {
		issues = append(issues, "reps must be >= 1")
	}
	if c.Parallel && c.Workers < 1 {
		issues = append(issues, "workers must be >= 1 in parallel mode")
	}
	if c.Delay < 0 {
		issues = append(issues, "delay must be >= 0")
	}
	if c.DelayStart < 0 {
		issues = append(issues, "delay-start must be >= 0")
	}
	if c.NavTimeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}

	for idx, field := range c.BasePayload {
		if strings.TrimSpace(field.Name) == "" {
			issues = append(issues, fmt.Sprintf("payload[%d]: field name cannot be empty", idx))
		}
	}

	if proto := strings.ToLower(strings.TrimSpace(c.Tracing.Protocol)); proto != "" && proto != "grpc" && proto != "http" {
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", c.Tracing.Protocol))
	}

	// This tool is for environments the operator controls; nudge when the
	// configuration looks like more than a functional check.
	if c.Reps > 200 {
		warnings = append(warnings, fmt.Sprintf("WARNING: %d attempts configured. Ensure the target is a controlled/staging environment you are authorized to test.", c.Reps))
	}
	if c.Parallel && c.Workers > 16 {
		warnings = append(warnings, fmt.Sprintf("WARNING: %d parallel browser workers configured. Each worker launches a full browser process.", c.Workers))
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
