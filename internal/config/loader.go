package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// defaultUserAgent matches the browser engine the tool drives.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:140.0) Gecko/20100101 Firefox/140.0"

// defaultBasePayload is the placeholder field template; real deployments
// override it from the config file.
func defaultBasePayload() []PayloadField {
	return []PayloadField{
		{Name: "field_option", Value: "value_option"},
		{Name: "screen", Value: "submit"},
		{Name: "formId", Value: "123"},
		{Name: "action", Value: "submit"},
	}
}

// Load parses command-line arguments and an optional configuration file to
// produce a Config. Precedence: defaults, then file settings, then flags.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Marker:      "thank you",
		UserAgent:   defaultUserAgent,
		BasePayload: defaultBasePayload(),
		Reps:        1,
		Workers:     2,
		Delay:       time.Second,
		DelayStart:  600 * time.Millisecond,
		NavTimeout:  30 * time.Second,
		Tracing:     TracingConfig{SampleRate: 1.0},
		ConfigFile:  configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.PageURL = strings.TrimSpace(cfg.PageURL)
	cfg.EndpointURL = strings.TrimSpace(cfg.EndpointURL)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "page"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("page: %w", err)
		}
		cfg.PageURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		cfg.EndpointURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "marker"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("marker: %w", err)
		}
		cfg.Marker = val
	}

	if raw, ok := lookupSetting(settings, "useragent", "user_agent", "user-agent"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("userAgent: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.UserAgent = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "payload"); ok {
		payload, err := parsePayload(raw)
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		cfg.BasePayload = payload
	}

	if raw, ok := lookupSetting(settings, "reps"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("reps: %w", err)
		}
		cfg.Reps = val
	}

	if raw, ok := lookupSetting(settings, "parallel"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("parallel: %w", err)
		}
		cfg.Parallel = val
	}

	if raw, ok := lookupSetting(settings, "workers"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("workers: %w", err)
		}
		cfg.Workers = val
	}

	if raw, ok := lookupSetting(settings, "delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		cfg.Delay = dur
	}

	if raw, ok := lookupSetting(settings, "delaystart", "delay_start", "delay-start"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("delayStart: %w", err)
		}
		cfg.DelayStart = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "headless"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("headless: %w", err)
		}
		cfg.Headless = val
	}

	if raw, ok := lookupSetting(settings, "waitselector", "wait_selector", "wait-selector"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("waitSelector: %w", err)
		}
		cfg.WaitSelector = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asNavTimeout(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.NavTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if tracing.SampleRate == 0 && !tracingSampleRateSet(raw) {
			tracing.SampleRate = cfg.Tracing.SampleRate
		}
		cfg.Tracing = tracing
	}

	return nil
}

// asNavTimeout reads the navigation timeout: duration strings pass through,
// bare numbers are milliseconds to match the --timeout flag.
func asNavTimeout(value interface{}) (time.Duration, error) {
	switch value.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		ms, err := asInt(value)
		if err != nil {
			return 0, err
		}
		return time.Duration(ms) * time.Millisecond, nil
	default:
		return asDuration(value)
	}
}

func parsePayload(value interface{}) ([]PayloadField, error) {
	if value == nil {
		return nil, nil
	}
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	fields := make([]PayloadField, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var field PayloadField
		if raw, ok := lookupSetting(entry, "field", "name"); ok {
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d field: %w", idx, err)
			}
			field.Name = strings.TrimSpace(val)
		}
		if raw, ok := lookupSetting(entry, "value"); ok {
			val, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("index %d value: %w", idx, err)
			}
			field.Value = val
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parseTracing(value interface{}) (TracingConfig, error) {
	if value == nil {
		return TracingConfig{}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}

	var tracing TracingConfig
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	return tracing, nil
}

func tracingSampleRateSet(value interface{}) bool {
	entry, err := toStringKeyMap(value)
	if err != nil {
		return false
	}
	_, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate")
	return ok
}
