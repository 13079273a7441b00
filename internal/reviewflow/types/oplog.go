package types

import (
	"fmt"
	"strings"
	"time"
)

// LogLevel orders operational log severities; higher is more severe.
type LogLevel int

const (
	LevelDebug LogLevel = iota + 1
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
)

var levelNames = map[LogLevel]string{
	LevelDebug:    "debug",
	LevelInfo:     "info",
	LevelWarning:  "warning",
	LevelError:    "error",
	LevelCritical: "critical",
}

func (l LogLevel) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l LogLevel) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

func ParseLogLevel(v string) (LogLevel, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "warn" {
		v = "warning"
	}
	for l, n := range levelNames {
		if n == v {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", v)
}

// LogEntry is one operational log line.
type LogEntry struct {
	ID        int64          `json:"id"`
	Level     LogLevel       `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// LogQuery selects operational log entries, newest first.
type LogQuery struct {
	MinLevel LogLevel
	Category string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

func (q LogQuery) Matches(e LogEntry) bool {
	if q.MinLevel != 0 && e.Level < q.MinLevel {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.Timestamp.Before(q.To) {
		return false
	}
	return true
}

// LogClear selects entries for bulk deletion. Zero fields are wildcards, but
// at least one must be set.
type LogClear struct {
	Level     LogLevel
	Category  string
	OlderThan time.Time
}

func (c LogClear) IsEmpty() bool {
	return c.Level == 0 && c.Category == "" && c.OlderThan.IsZero()
}

func (c LogClear) Matches(e LogEntry) bool {
	if c.Level != 0 && e.Level != c.Level {
		return false
	}
	if c.Category != "" && e.Category != c.Category {
		return false
	}
	if !c.OlderThan.IsZero() && !e.Timestamp.Before(c.OlderThan) {
		return false
	}
	return true
}
