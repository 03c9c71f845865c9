package warmup

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxChunkSize is the largest batch SendGrid accepts in one email/add call;
// larger requests fail with "URL too large".
const MaxChunkSize = 50

// Defaults applied to zero-valued options.
const (
	DefaultInterval     = 500
	DefaultIntervalStep = 200
	DefaultSendInterval = 24 * time.Hour
	DefaultChunkSize    = MaxChunkSize
)

// DefaultKeys names the CSV columns when Options.Keys is empty.
var DefaultKeys = []string{"name", "email"}

// Validation errors.
var (
	ErrChunkSize     = fmt.Errorf("chunk size must be between 1 and %d", MaxChunkSize)
	ErrStartTime     = errors.New("exactly one of StartSendAt or StartSendAfter is required")
	ErrSendInterval  = errors.New("send interval must be at least one second")
	ErrRamp          = errors.New("interval, interval step and start count must not be negative")
	ErrMissingSource = errors.New("source newsletter and prefix are required")
)

// Options configure a warm-up run.
type Options struct {
	// SourceNewsletter is the existing newsletter cloned for every cohort.
	SourceNewsletter string

	// Prefix names the lists and newsletters created: <prefix>_<label>.
	Prefix string

	// Interval is the size of the first cohort (0 means DefaultInterval).
	Interval int

	// IntervalStep is added to the cohort size every period (0 means DefaultIntervalStep).
	IntervalStep int

	// StartCount is how many sends the first period already used.
	StartCount int

	// StartSendAt is the send time of the first cohort.
	StartSendAt time.Time

	// StartSendAfter delays the first cohort relative to now.
	StartSendAfter time.Duration

	// SendInterval separates consecutive cohorts (0 means one day). Whole
	// days are calendar days, so send times keep their wall clock across DST.
	SendInterval time.Duration

	// Keys name the CSV columns in order (empty means name, email).
	Keys []string

	// ChunkSize bounds recipients per upload call (0 means 50).
	ChunkSize int

	// Concurrency is the number of cohorts processed at once (0 means 1).
	Concurrency int

	// RunID identifies the run for resumption (empty means a new UUID).
	RunID string
}

// withDefaults validates o and returns a copy with defaults filled in.
func (o Options) withDefaults() (Options, error) {
	if o.SourceNewsletter == "" || o.Prefix == "" {
		return o, ErrMissingSource
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkSize < 1 || o.ChunkSize > MaxChunkSize {
		return o, fmt.Errorf("%w (got %d)", ErrChunkSize, o.ChunkSize)
	}
	if o.StartSendAt.IsZero() == (o.StartSendAfter <= 0) {
		return o, ErrStartTime
	}
	if o.Interval < 0 || o.IntervalStep < 0 || o.StartCount < 0 {
		return o, ErrRamp
	}
	if o.Interval == 0 {
		o.Interval = DefaultInterval
	}
	if o.IntervalStep == 0 {
		o.IntervalStep = DefaultIntervalStep
	}
	if o.SendInterval == 0 {
		o.SendInterval = DefaultSendInterval
	}
	if o.SendInterval < time.Second {
		return o, ErrSendInterval
	}
	if len(o.Keys) == 0 {
		o.Keys = DefaultKeys
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return o, nil
}

// firstSendAt returns the send time of the first cohort.
func (o Options) firstSendAt(now time.Time) time.Time {
	if !o.StartSendAt.IsZero() {
		return o.StartSendAt
	}
	return now.Add(o.StartSendAfter)
}
