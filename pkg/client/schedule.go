package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// ScheduleTimeLayout is the timestamp format SendGrid expects for "at".
// The API has no timezone support; the wall clock of the value is sent as is.
const ScheduleTimeLayout = "2006-01-02T15:04:05"

// Schedule says when a newsletter goes out. At takes precedence over
// AfterMinutes; the zero Schedule sends immediately.
type Schedule struct {
	At           time.Time
	AfterMinutes int
}

// AddSchedule schedules a newsletter for delivery.
func (c *Client) AddSchedule(ctx context.Context, newsletter string, s Schedule) (*Result, error) {
	params := url.Values{"name": {newsletter}}
	switch {
	case !s.At.IsZero():
		params.Set("at", s.At.Format(ScheduleTimeLayout))
	case s.AfterMinutes > 0:
		params.Set("after", strconv.Itoa(s.AfterMinutes))
	}
	return c.Call(ctx, endpoint.ScheduleAdd, params)
}

// GetSchedule fetches the scheduled delivery of a newsletter.
func (c *Client) GetSchedule(ctx context.Context, newsletter string) (*Result, error) {
	return c.Call(ctx, endpoint.ScheduleGet, url.Values{"name": {newsletter}})
}

// DeleteSchedule cancels the scheduled delivery of a newsletter.
func (c *Client) DeleteSchedule(ctx context.Context, newsletter string) (*Result, error) {
	return c.Call(ctx, endpoint.ScheduleDelete, url.Values{"name": {newsletter}})
}
