package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// Newsletter is a SendGrid newsletter as returned by newsletter/get.
type Newsletter struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Text     string `json:"text"`
	Identity string `json:"identity"`
}

// NewsletterEdit describes changes to an existing newsletter.
type NewsletterEdit struct {
	Name     string
	NewName  string // defaults to Name
	Subject  string
	Text     string
	HTML     string
	Identity string // defaults to the account's first identity
}

// LookupKind tags the shape of a newsletter lookup.
type LookupKind int

const (
	// LookupFound means a single newsletter object was returned.
	LookupFound LookupKind = iota
	// LookupAmbiguous means SendGrid returned a list instead of one newsletter.
	LookupAmbiguous
	// LookupFailed means SendGrid reported an application error.
	LookupFailed
)

// String implements fmt.Stringer.
func (k LookupKind) String() string {
	switch k {
	case LookupFound:
		return "found"
	case LookupAmbiguous:
		return "ambiguous"
	case LookupFailed:
		return "failed"
	default:
		return fmt.Sprintf("LookupKind(%d)", int(k))
	}
}

// NewsletterLookup is the tagged result of FindNewsletter.
type NewsletterLookup struct {
	Kind LookupKind

	// Newsletter is set when Kind is LookupFound.
	Newsletter *Newsletter

	// Candidates holds the raw list entries when Kind is LookupAmbiguous.
	Candidates []json.RawMessage

	// Err is set when Kind is LookupFailed.
	Err *ApplicationError

	// Result is the underlying call result.
	Result *Result
}

// CloneResult reports what CloneNewsletter did.
type CloneResult struct {
	// Source is the lookup of the newsletter being cloned.
	Source *NewsletterLookup

	// Created is the newsletter/add result; nil when the source was not found.
	Created *Result
}

// Cloned reports whether the add call was issued.
func (r *CloneResult) Cloned() bool {
	return r.Created != nil
}

// GetNewsletter fetches a newsletter by name.
func (c *Client) GetNewsletter(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.NewsletterGet, url.Values{"name": {name}})
}

// ListNewsletters lists newsletters, optionally filtered by name.
func (c *Client) ListNewsletters(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.NewsletterList, optional("name", name))
}

// AddNewsletter creates a newsletter. An empty Identity resolves to the
// account's first identity and an empty Text falls back to HTML.
func (c *Client) AddNewsletter(ctx context.Context, n Newsletter) (*Result, error) {
	if n.Identity == "" {
		identity, err := c.DefaultIdentity(ctx)
		if err != nil {
			return nil, err
		}
		n.Identity = identity
	}
	if n.Text == "" {
		n.Text = n.HTML
	}

	return c.Call(ctx, endpoint.NewsletterAdd, url.Values{
		"identity": {n.Identity},
		"name":     {n.Name},
		"subject":  {n.Subject},
		"text":     {n.Text},
		"html":     {n.HTML},
	})
}

// EditNewsletter updates an existing newsletter.
func (c *Client) EditNewsletter(ctx context.Context, e NewsletterEdit) (*Result, error) {
	if e.Identity == "" {
		identity, err := c.DefaultIdentity(ctx)
		if err != nil {
			return nil, err
		}
		e.Identity = identity
	}
	if e.NewName == "" {
		e.NewName = e.Name
	}

	params := url.Values{
		"identity": {e.Identity},
		"name":     {e.Name},
		"newname":  {e.NewName},
	}
	setIf(params, "subject", e.Subject)
	setIf(params, "text", e.Text)
	setIf(params, "html", e.HTML)

	return c.Call(ctx, endpoint.NewsletterEdit, params)
}

// DeleteNewsletter removes a newsletter.
func (c *Client) DeleteNewsletter(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.NewsletterDelete, url.Values{"name": {name}})
}

// FindNewsletter fetches a newsletter and tags the shape of the answer.
func (c *Client) FindNewsletter(ctx context.Context, name string) (*NewsletterLookup, error) {
	result, err := c.GetNewsletter(ctx, name)
	if err != nil {
		return nil, err
	}

	lookup := &NewsletterLookup{Result: result}
	switch {
	case result.IsList():
		lookup.Kind = LookupAmbiguous
		if err := result.Decode(&lookup.Candidates); err != nil {
			return nil, err
		}
	case result.AppError() != nil:
		lookup.Kind = LookupFailed
		lookup.Err = result.AppError()
	default:
		var n Newsletter
		if err := result.Decode(&n); err != nil {
			return nil, err
		}
		lookup.Kind = LookupFound
		lookup.Newsletter = &n
	}
	return lookup, nil
}

// CloneNewsletter copies an existing newsletter under a new name. The copy is
// only made when the source lookup is LookupFound; otherwise the lookup is
// returned and no newsletter is created.
func (c *Client) CloneNewsletter(ctx context.Context, existing, newName string) (*CloneResult, error) {
	lookup, err := c.FindNewsletter(ctx, existing)
	if err != nil {
		return nil, err
	}

	out := &CloneResult{Source: lookup}
	if lookup.Kind != LookupFound {
		c.logger.Warn().
			Str("newsletter", existing).
			Stringer("lookup", lookup.Kind).
			Msg("Clone skipped, source newsletter not found")
		return out, nil
	}

	src := lookup.Newsletter
	out.Created, err = c.AddNewsletter(ctx, Newsletter{
		Name:     newName,
		Subject:  src.Subject,
		HTML:     src.HTML,
		Text:     src.Text,
		Identity: src.Identity,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// optional returns {key: value} or empty params when value is empty.
func optional(key, value string) url.Values {
	params := url.Values{}
	setIf(params, key, value)
	return params
}

func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
