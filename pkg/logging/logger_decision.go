package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// DecisionLogger records the outcome of every mediated operation
type DecisionLogger interface {
	// LogDecision logs one access-hook verdict
	LogDecision(operation string, client uint32, object uint32, verdict string, details ...interface{})
	// LogEvent logs one subscription-event filtering outcome
	LogEvent(event string, client uint32, object uint32, verdict string, details ...interface{})
}

type decisionLogger struct {
	logger *log.Logger
}

// NewDecisionLogger creates a decision logger writing to logPath. An empty
// path discards output.
func NewDecisionLogger(logPath string) (DecisionLogger, error) {
	var writer io.Writer

	if logPath == "" {
		writer = io.Discard
	} else {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening decision log file: %w", err)
		}
		writer = f
	}

	return &decisionLogger{
		logger: log.New(writer, "", 0), // No flags, we handle formatting ourselves
	}, nil
}

func (l *decisionLogger) write(kind string, subject string, client uint32, object uint32, verdict string, details []interface{}) {
	parts := []string{
		fmt.Sprintf("%s=%s", kind, formatValue(subject)),
		fmt.Sprintf("client=%d", client),
		fmt.Sprintf("object=%d", object),
		fmt.Sprintf("verdict=%s", formatValue(verdict)),
	}

	for i := 0; i < len(details); i += 2 {
		if i+1 < len(details) {
			parts = append(parts, fmt.Sprintf("%v=%s", details[i], formatValue(details[i+1])))
		}
	}

	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 -0700")
	l.logger.Printf("%s %s", timestamp, strings.Join(parts, " "))
}

func (l *decisionLogger) LogDecision(operation string, client uint32, object uint32, verdict string, details ...interface{}) {
	l.write("op", operation, client, object, verdict, details)
}

func (l *decisionLogger) LogEvent(event string, client uint32, object uint32, verdict string, details ...interface{}) {
	l.write("event", event, client, object, verdict, details)
}
