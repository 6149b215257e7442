package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/asynkron/whippatch/internal/logging"
	"github.com/asynkron/whippatch/internal/whip"
)

const (
	envTarget   = "WHIPPATCH_TARGET"
	envLogLevel = "WHIPPATCH_LOG_LEVEL"
)

// Options holds the resolved configuration for one run.
type Options struct {
	Target string
	DryRun bool
	Diff   bool
	Backup bool
	Guard  bool
	Review bool
	List   bool

	// DiffContext is the number of unchanged lines kept around each change
	// when printing a diff. A negative value prints the whole file.
	DiffContext int

	LogLevel string
	level    logging.LogLevel
}

// setDefaults fills unset values from the environment and built-in defaults.
func (o *Options) setDefaults() {
	o.Target = strings.TrimSpace(o.Target)
	if o.Target == "" {
		o.Target = strings.TrimSpace(os.Getenv(envTarget))
	}
	if o.Target == "" {
		o.Target = whip.DefaultTarget
	}
	if strings.TrimSpace(o.LogLevel) == "" {
		o.LogLevel = os.Getenv(envLogLevel)
	}
	if strings.TrimSpace(o.LogLevel) == "" {
		o.LogLevel = "warn"
	}
}

// validate performs lightweight validation of user supplied options.
func (o *Options) validate() error {
	level, err := logging.ParseLevel(o.LogLevel)
	if err != nil {
		return err
	}
	o.level = level
	if o.Review && o.DryRun {
		return errors.New("--review and --dry-run are mutually exclusive")
	}
	return nil
}
