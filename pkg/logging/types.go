package logging

import (
	"fmt"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// LogLevelDebug is for debug messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is for informational messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is for warning messages
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is for error messages
	LogLevelError LogLevel = "error"
)

var (
	// App is the global application logger
	App *AppLogger
	// Decision is the global access-decision logger
	Decision DecisionLogger
)

func init() {
	var err error

	// Until Initialize is called the app logger writes info and above to
	// stdout and the decision logger discards output
	App, err = NewAppLogger("", LogLevelInfo)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default app logger: %v", err))
	}

	Decision, err = NewDecisionLogger("")
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default decision logger: %v", err))
	}
}

// Initialize sets up the global loggers
func Initialize(decisionLogPath, appLogPath string, level LogLevel) error {
	if level == "" {
		level = LogLevelInfo
	}

	newDecision, err := NewDecisionLogger(decisionLogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize decision logger: %w", err)
	}

	newApp, err := NewAppLogger(appLogPath, level)
	if err != nil {
		return fmt.Errorf("failed to initialize app logger: %w", err)
	}

	Decision = newDecision
	App = newApp

	return nil
}

// formatValue formats a value for logfmt, quoting if necessary
func formatValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if strings.ContainsAny(s, " =\"") {
		s = strings.ReplaceAll(s, "\"", "\\\"")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
