package navstack

import "time"

// QueryLogEvent describes one query evaluation for logging.
type QueryLogEvent struct {
	Expr     string
	Index    int
	Duration time.Duration
	Err      error
}

// QueryLogger records inspector query events.
type QueryLogger interface {
	LogQuery(QueryLogEvent)
}

// QueryLoggerFunc adapts a function to QueryLogger.
type QueryLoggerFunc func(QueryLogEvent)

// LogQuery implements QueryLogger.
func (f QueryLoggerFunc) LogQuery(event QueryLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopQueryLogger struct{}

func (noopQueryLogger) LogQuery(QueryLogEvent) {}
