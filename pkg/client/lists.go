package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// Recipient is one row of a recipient list, e.g. {"name": "Jon", "email": "jon@example.com"}.
type Recipient map[string]string

// AddList creates a recipient list.
func (c *Client) AddList(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.ListsAdd, url.Values{"list": {name}})
}

// GetLists fetches one list, or all lists when name is empty.
func (c *Client) GetLists(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.ListsGet, optional("list", name))
}

// DeleteList removes a recipient list.
func (c *Client) DeleteList(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.ListsDelete, url.Values{"list": {name}})
}

// RenameList renames a recipient list.
func (c *Client) RenameList(ctx context.Context, list, newList string) (*Result, error) {
	return c.Call(ctx, endpoint.ListsEdit, url.Values{"list": {list}, "newlist": {newList}})
}

// AddEmail adds a single recipient to a list.
func (c *Client) AddEmail(ctx context.Context, list string, r Recipient) (*Result, error) {
	return c.AddEmails(ctx, list, []Recipient{r})
}

// AddEmails adds a batch of recipients to a list. Each recipient travels as
// a JSON-encoded "data" value inside the form body.
func (c *Client) AddEmails(ctx context.Context, list string, recipients []Recipient) (*Result, error) {
	data, err := encodeRecipients(recipients)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, endpoint.EmailAdd, url.Values{"list": {list}, "data": data})
}

// EditEmail updates a recipient already on a list.
func (c *Client) EditEmail(ctx context.Context, list string, r Recipient) (*Result, error) {
	data, err := encodeRecipients([]Recipient{r})
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, endpoint.EmailEdit, url.Values{"list": {list}, "data": data})
}

// GetEmails fetches list members, optionally restricted to the given addresses.
func (c *Client) GetEmails(ctx context.Context, list string, emails ...string) (*Result, error) {
	params := url.Values{"list": {list}}
	if len(emails) > 0 {
		params["email"] = emails
	}
	return c.Call(ctx, endpoint.EmailGet, params)
}

// DeleteEmails removes addresses from a list.
func (c *Client) DeleteEmails(ctx context.Context, list string, emails ...string) (*Result, error) {
	if len(emails) == 0 {
		return nil, ErrNoRecipients
	}
	return c.Call(ctx, endpoint.EmailDelete, url.Values{"list": {list}, "email": emails})
}

func encodeRecipients(recipients []Recipient) ([]string, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	data := make([]string, 0, len(recipients))
	for i, r := range recipients {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode recipient %d: %w", i, err)
		}
		data = append(data, string(b))
	}
	return data, nil
}
