package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "formdrill",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("page", "", "URL of the page carrying the form/challenge")
	flags.String("endpoint", "", "URL of the endpoint that processes the submission")
	flags.String("marker", "thank you", "Case-insensitive substring marking a functionally successful response")
	flags.String("user-agent", "", "User agent for the browser context")

	// Run control flags
	flags.IntP("reps", "n", 1, "Number of attempts")
	flags.BoolP("parallel", "p", false, "Run attempts across a bounded worker pool")
	flags.IntP("workers", "w", 2, "Number of parallel workers")
	flags.Float64("delay", 1.0, "Base delay between attempts in seconds (sequential mode)")
	flags.Float64("delay-start", 0.6, "Base delay between observed completions in seconds (parallel mode)")
	flags.IntP("rate", "r", 0, "Attempts per second cap (0 means unlimited)")

	// Browser flags
	flags.Bool("headless", false, "Run the browser headless")
	flags.String("wait-selector", "", "Optional selector to wait for after the page loads")
	flags.Int("timeout", 30000, "Page navigation timeout in milliseconds")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted report")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("page") {
		val, err := fs.GetString("page")
		if err != nil {
			return err
		}
		cfg.PageURL = strings.TrimSpace(val)
	}
	if fs.Changed("endpoint") {
		val, err := fs.GetString("endpoint")
		if err != nil {
			return err
		}
		cfg.EndpointURL = strings.TrimSpace(val)
	}
	if fs.Changed("marker") {
		val, err := fs.GetString("marker")
		if err != nil {
			return err
		}
		cfg.Marker = val
	}
	if fs.Changed("user-agent") {
		val, err := fs.GetString("user-agent")
		if err != nil {
			return err
		}
		cfg.UserAgent = strings.TrimSpace(val)
	}
	if fs.Changed("reps") {
		val, err := fs.GetInt("reps")
		if err != nil {
			return err
		}
		cfg.Reps = val
	}
	if fs.Changed("parallel") {
		val, err := fs.GetBool("parallel")
		if err != nil {
			return err
		}
		cfg.Parallel = val
	}
	if fs.Changed("workers") {
		val, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = val
	}
	if fs.Changed("delay") {
		val, err := fs.GetFloat64("delay")
		if err != nil {
			return err
		}
		cfg.Delay = secondsToDuration(val)
	}
	if fs.Changed("delay-start") {
		val, err := fs.GetFloat64("delay-start")
		if err != nil {
			return err
		}
		cfg.DelayStart = secondsToDuration(val)
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("headless") {
		val, err := fs.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.Headless = val
	}
	if fs.Changed("wait-selector") {
		val, err := fs.GetString("wait-selector")
		if err != nil {
			return err
		}
		cfg.WaitSelector = strings.TrimSpace(val)
	}
	if fs.Changed("timeout") {
		val, err := fs.GetInt("timeout")
		if err != nil {
			return err
		}
		cfg.NavTimeout = time.Duration(val) * time.Millisecond
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
