// Package audit provides the append-only call log written by the SendGrid client.
// Every call attempt produces two JSON lines: the request (URL, parameters,
// timestamp) followed by the response (status, body or error, timestamp).
package audit

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPath is the audit log file used when none is configured.
const DefaultPath = "sendgrid.log"

// redacted replaces secret parameter values in the log.
const redacted = "REDACTED"

// secretParams are never written in clear text.
var secretParams = map[string]bool{
	"api_key": true,
}

// Entry describes one request/response exchange.
type Entry struct {
	URL         string
	Params      url.Values
	RequestedAt time.Time

	StatusCode  int
	Response    []byte
	Err         error
	RespondedAt time.Time

	// Cached marks a response served from the local cache without a request.
	Cached bool
}

// Recorder receives audit entries.
type Recorder interface {
	Record(entry Entry)
}

// Log appends entries to a writer as zerolog JSON lines.
// It is safe for concurrent use; the two lines of an entry are always adjacent.
type Log struct {
	mu     sync.Mutex
	logger zerolog.Logger
	closer io.Closer
}

// New creates an audit log writing to w.
func New(w io.Writer) *Log {
	return &Log{
		logger: zerolog.New(w),
	}
}

// Open opens (or creates) the file at path in append mode.
func Open(path string) (*Log, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// Record writes the request line and the response line for entry.
func (l *Log) Record(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Log().
		Str("kind", "request").
		Str("url", entry.URL).
		Interface("params", redact(entry.Params)).
		Time("at", entry.RequestedAt).
		Send()

	ev := l.logger.Log().
		Str("kind", "response").
		Str("url", entry.URL).
		Int("status", entry.StatusCode)
	if entry.Cached {
		ev = ev.Bool("cached", true)
	}
	if entry.Err != nil {
		ev = ev.Str("error", entry.Err.Error())
	} else {
		ev = ev.Str("body", string(entry.Response))
	}
	ev.Time("at", entry.RespondedAt).Send()
}

// Close closes the underlying file, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func redact(params url.Values) map[string][]string {
	out := make(map[string][]string, len(params))
	for k, v := range params {
		if secretParams[k] {
			out[k] = []string{redacted}
			continue
		}
		out[k] = v
	}
	return out
}

type discard struct{}

func (discard) Record(Entry) {}

// Discard is a Recorder that drops every entry.
var Discard Recorder = discard{}
