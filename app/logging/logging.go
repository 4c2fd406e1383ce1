// Package logging writes one JSON object per line.
package logging

import (
	"encoding/json"
	"io"
	"log"
	"time"
)

type Logger struct {
	base *log.Logger
}

func New(w io.Writer) *Logger {
	return &Logger{base: log.New(w, "", 0)}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.emit("INFO", msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.emit("WARN", msg, fields)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	l.emit("ERROR", msg, fields)
}

func (l *Logger) emit(level, msg string, fields map[string]any) {
	if l == nil {
		return
	}
	m := make(map[string]any, 3+len(fields))
	m["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["level"] = level
	m["msg"] = msg
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		m[k] = v
	}
	b, err := json.Marshal(m)
	if err != nil {
		l.base.Printf(`{"level":"ERROR","msg":"log marshal failed","err":%q}`, err.Error())
		return
	}
	l.base.Print(string(b))
}
