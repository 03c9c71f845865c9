package warmup

import (
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/client"
)

// Cohort is a group of recipients sharing a send time.
type Cohort struct {
	// Label is the send time formatted with client.ScheduleTimeLayout.
	Label      string
	SendAt     time.Time
	Recipients []client.Recipient
}

// Name returns the list and newsletter name used for the cohort.
func (c Cohort) Name(prefix string) string {
	return prefix + "_" + c.Label
}

// Plan splits recipients into cohorts of growing size. The first cohort is
// sent at firstSendAt and holds Interval-StartCount recipients; each following
// cohort is sent SendInterval later and holds IntervalStep more than the last.
// opts must already carry defaults.
func Plan(recipients []client.Recipient, opts Options, firstSendAt time.Time) []Cohort {
	var cohorts []Cohort

	sendAt := firstSendAt
	capacity := opts.Interval
	count := opts.StartCount

	for _, r := range recipients {
		if count >= capacity {
			sendAt = advance(sendAt, opts.SendInterval)
			capacity += opts.IntervalStep
			count = 0
		}

		label := sendAt.Format(client.ScheduleTimeLayout)
		if len(cohorts) == 0 || cohorts[len(cohorts)-1].Label != label {
			cohorts = append(cohorts, Cohort{Label: label, SendAt: sendAt})
		}
		last := &cohorts[len(cohorts)-1]
		last.Recipients = append(last.Recipients, r)
		count++
	}

	return cohorts
}

// advance moves t forward by d. Whole days step the calendar so the wall
// clock time survives DST changes; only the remainder is added as elapsed time.
func advance(t time.Time, d time.Duration) time.Time {
	const day = 24 * time.Hour
	return t.AddDate(0, 0, int(d/day)).Add(d % day)
}

// Chunk partitions items into contiguous, order-preserving groups of at most
// size elements. The groups share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
