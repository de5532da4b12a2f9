package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured key/value pair on a log line.
type Field interface {
	AddTo(event *zerolog.Event)
	GetKeyValue() (string, interface{})
}

// field carries the value twice: a typed append for zerolog and a plain
// value for the error collector.
type field struct {
	key   string
	value interface{}
	add   func(*zerolog.Event)
}

func (f field) AddTo(event *zerolog.Event)         { f.add(event) }
func (f field) GetKeyValue() (string, interface{}) { return f.key, f.value }

func String(key, value string) Field {
	return field{key, value, func(e *zerolog.Event) { e.Str(key, value) }}
}

// Strings joins the values into one comma separated field.
func Strings(key string, value []string) Field {
	joined := strings.Join(value, ", ")
	return field{key, joined, func(e *zerolog.Event) { e.Str(key, joined) }}
}

func Int(key string, value int) Field {
	return field{key, value, func(e *zerolog.Event) { e.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return field{key, value, func(e *zerolog.Event) { e.Int64(key, value) }}
}

// Duration logs value as whole milliseconds.
func Duration(key string, value time.Duration) Field {
	ms := int(value / time.Millisecond)
	return field{key, ms, func(e *zerolog.Event) { e.Int(key, ms) }}
}

// Error logs err under the standard "error" key. A nil err stays nil in
// the collector instead of panicking on Error().
func Error(err error) Field {
	var msg interface{}
	if err != nil {
		msg = err.Error()
	}
	return field{"error", msg, func(e *zerolog.Event) { e.Err(err) }}
}
