package logger

import (
	"errors"

	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// RollbarConfig holds the settings for error reporting
type RollbarConfig struct {
	Token       string
	Environment string
	CodeVersion string
	ServerHost  string
}

// RollbarHook forwards error-level events to Rollbar
type RollbarHook struct{}

// NewRollbarHook configures the rollbar client and returns a hook for Configure.
// Returns nil when no token is configured.
func NewRollbarHook(cfg RollbarConfig) zerolog.Hook {
	if cfg.Token == "" {
		rollbar.SetEnabled(false)
		return nil
	}
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	if cfg.CodeVersion != "" {
		rollbar.SetCodeVersion(cfg.CodeVersion)
	}
	if cfg.ServerHost != "" {
		rollbar.SetServerHost(cfg.ServerHost)
	}
	rollbar.SetEnabled(true)
	return RollbarHook{}
}

// Run implements zerolog.Hook
func (RollbarHook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	switch level {
	case zerolog.ErrorLevel:
		rollbar.Error(errors.New(message))
	case zerolog.FatalLevel, zerolog.PanicLevel:
		rollbar.Critical(errors.New(message))
	}
}

// ReportPanic sends a recovered panic value to Rollbar
func ReportPanic(recovered interface{}, extras map[string]interface{}) {
	rollbar.Critical(recovered, extras)
}

// FlushReports blocks until queued reports are sent
func FlushReports() {
	rollbar.Wait()
}
