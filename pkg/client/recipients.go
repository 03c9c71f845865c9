package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sendgridRecipientsPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sendgrid_recipients_polls_total",
	Help: "Total number of waits for a new list to become visible to a newsletter",
})

// AddRecipients attaches a list to a newsletter as its recipient source.
//
// A list created moments ago may not be visible to the newsletter subsystem
// yet, in which case SendGrid answers "... without recipients". The call is
// repeated per Config.RecipientsPoll while that condition holds. Any other
// outcome, including other application errors, is returned immediately.
func (c *Client) AddRecipients(ctx context.Context, newsletter, list string) (*Result, error) {
	poll := c.config.RecipientsPoll
	params := url.Values{"name": {newsletter}, "list": {list}}

	var result *Result
	for attempt := 1; attempt <= poll.Attempts; attempt++ {
		var err error
		result, err = c.Call(ctx, endpoint.RecipientsAdd, params)
		if err != nil {
			return nil, err
		}

		if appErr := result.AppError(); appErr == nil || !IsWithoutRecipients(appErr) {
			return result, nil
		}
		if attempt == poll.Attempts {
			break
		}

		sendgridRecipientsPollsTotal.Inc()
		c.logger.Info().
			Str("newsletter", newsletter).
			Str("list", list).
			Int("attempt", attempt).
			Dur("delay", poll.Delay).
			Msg("List not visible to newsletter yet, waiting")

		timer := time.NewTimer(poll.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	c.logger.Warn().
		Str("newsletter", newsletter).
		Str("list", list).
		Int("attempts", poll.Attempts).
		Msg("List still not visible to newsletter after polling")
	return result, nil
}

// GetRecipients lists the recipient lists attached to a newsletter.
func (c *Client) GetRecipients(ctx context.Context, newsletter string) (*Result, error) {
	return c.Call(ctx, endpoint.RecipientsGet, url.Values{"name": {newsletter}})
}

// DeleteRecipients detaches a list from a newsletter.
func (c *Client) DeleteRecipients(ctx context.Context, newsletter, list string) (*Result, error) {
	return c.Call(ctx, endpoint.RecipientsDelete, url.Values{"name": {newsletter}, "list": {list}})
}
