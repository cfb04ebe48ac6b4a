package events

import "github.com/ThreeDotsLabs/watermill"

const moduleName = "EVENTS"

type Logger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}

// watermillLogger routes watermill's own logging into the application logger.
type watermillLogger struct {
	logger Logger
	fields watermill.LogFields
}

func NewWatermillLogger(l Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: l}
}

func (w *watermillLogger) details(fields watermill.LogFields) map[string]interface{} {
	out := make(map[string]interface{}, len(w.fields)+len(fields))
	for k, v := range w.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	d := w.details(fields)
	d["error"] = err
	w.logger.Error(moduleName, msg, d)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.logger.Info(moduleName, msg, w.details(fields))
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debug(moduleName, msg, w.details(fields))
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.logger.Debug(moduleName, msg, w.details(fields))
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: w.logger, fields: w.details(fields)}
}
