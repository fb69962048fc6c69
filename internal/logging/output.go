package logging

import (
	"fmt"
	"log"
	"os"
	"time"
)

const levelFatal = "FATAL"

// writeLog formats the message with optional fields and routes output:
// DEBUG/INFO/WARN to stdout, ERROR/FATAL to stderr.
func (l *Logger) writeLog(level, msg string, fields map[string]interface{}) {
	timestamp := fmt.Sprintf("[%s]", GetTimestamp())
	logMsg := fmt.Sprintf("%s [%s] %s: %s", timestamp, level, l.name, msg)

	if len(fields) > 0 {
		logMsg += " |"
		for k, v := range fields {
			logMsg += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	if level == strError || level == levelFatal {
		fmt.Fprintf(os.Stderr, "%s\n", logMsg)
	} else {
		log.Println(logMsg)
	}
}

func (l *Logger) logf(level, msg string, args ...interface{}) {
	formattedMsg := fmt.Sprintf(msg, args...)

	var merged map[string]interface{}
	if len(l.fields) > 0 {
		merged = cloneFields(l.fields)
	}

	l.writeLog(level, formattedMsg, merged)
}

// GetTimestamp returns an RFC3339 timestamp for log lines.
// The LOG_TIMESTAMP env var overrides it for deterministic test output.
func GetTimestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
