package notify

import "github.com/rs/zerolog"

// zerologAdapter maps the variadic key/value Logger contract onto zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps a zerolog.Logger as a notify.Logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return &zerologAdapter{logger: logger.With().Str("component", "notify").Logger()}
}

func (a *zerologAdapter) Info(msg string, fields ...interface{}) {
	a.event(a.logger.Info(), fields).Msg(msg)
}

func (a *zerologAdapter) Error(msg string, fields ...interface{}) {
	a.event(a.logger.Error(), fields).Msg(msg)
}

func (a *zerologAdapter) Debug(msg string, fields ...interface{}) {
	a.event(a.logger.Debug(), fields).Msg(msg)
}

func (a *zerologAdapter) event(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, fields[i+1])
	}
	return e
}
