package client

import (
	"context"
	"net/url"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// Identity is a newsletter sender identity.
type Identity struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ReplyTo  string `json:"replyto"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

func (i Identity) values() url.Values {
	params := url.Values{}
	setIf(params, "identity", i.Identity)
	setIf(params, "name", i.Name)
	setIf(params, "email", i.Email)
	setIf(params, "replyto", i.ReplyTo)
	setIf(params, "address", i.Address)
	setIf(params, "city", i.City)
	setIf(params, "state", i.State)
	setIf(params, "zip", i.Zip)
	setIf(params, "country", i.Country)
	return params
}

// ListIdentities lists sender identities, optionally filtered by name.
func (c *Client) ListIdentities(ctx context.Context, name string) (*Result, error) {
	return c.Call(ctx, endpoint.IdentityList, optional("name", name))
}

// AddIdentity creates a sender identity.
func (c *Client) AddIdentity(ctx context.Context, identity Identity) (*Result, error) {
	return c.Call(ctx, endpoint.IdentityAdd, identity.values())
}

// GetIdentity fetches a sender identity.
func (c *Client) GetIdentity(ctx context.Context, identity string) (*Result, error) {
	return c.Call(ctx, endpoint.IdentityGet, url.Values{"identity": {identity}})
}

// DefaultIdentity returns the first identity listed for the account.
func (c *Client) DefaultIdentity(ctx context.Context) (string, error) {
	result, err := c.ListIdentities(ctx, "")
	if err != nil {
		return "", err
	}

	var identities []struct {
		Identity string `json:"identity"`
	}
	if result.AppError() != nil || !result.IsList() || result.Decode(&identities) != nil ||
		len(identities) == 0 || identities[0].Identity == "" {
		return "", &ConfigurationError{Field: "identity", Err: ErrNoIdentity}
	}
	return identities[0].Identity, nil
}
