package client

import (
	"context"
	"net/url"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// Subuser describes a new reseller subuser account.
type Subuser struct {
	Username        string
	Password        string
	ConfirmPassword string
	Email           string
	Profile
}

// Profile holds the editable contact details of a subuser.
type Profile struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	State     string
	Zip       string
	Country   string
	Phone     string
	Website   string
	Company   string
}

func (p Profile) values(params url.Values) {
	setIf(params, "first_name", p.FirstName)
	setIf(params, "last_name", p.LastName)
	setIf(params, "address", p.Address)
	setIf(params, "city", p.City)
	setIf(params, "state", p.State)
	setIf(params, "zip", p.Zip)
	setIf(params, "country", p.Country)
	setIf(params, "phone", p.Phone)
	setIf(params, "website", p.Website)
	setIf(params, "company", p.Company)
}

// SendIP assigns sending IPs to a subuser. Set is "specify", "all" or "none".
type SendIP struct {
	User string
	Set  string
	IPs  []string
}

// AddSubuser creates a subuser.
func (c *Client) AddSubuser(ctx context.Context, s Subuser) (*Result, error) {
	params := url.Values{}
	s.Profile.values(params)
	setIf(params, "username", s.Username)
	setIf(params, "password", s.Password)
	setIf(params, "confirm_password", s.ConfirmPassword)
	setIf(params, "email", s.Email)
	return c.Call(ctx, endpoint.SubuserAdd, params)
}

// ListSubusers lists subuser profiles.
func (c *Client) ListSubusers(ctx context.Context) (*Result, error) {
	return c.Call(ctx, endpoint.SubuserList, url.Values{"task": {"get"}})
}

// DeleteSubuser removes a subuser.
func (c *Client) DeleteSubuser(ctx context.Context, user string) (*Result, error) {
	return c.Call(ctx, endpoint.SubuserDelete, url.Values{"user": {user}})
}

// EditSubuser updates a subuser's profile.
func (c *Client) EditSubuser(ctx context.Context, user string, p Profile) (*Result, error) {
	params := url.Values{"task": {"set"}, "user": {user}}
	p.values(params)
	return c.Call(ctx, endpoint.SubuserEdit, params)
}

// AddSendIP appends sending IPs to a subuser.
func (c *Client) AddSendIP(ctx context.Context, s SendIP) (*Result, error) {
	params := url.Values{"task": {"append"}}
	setIf(params, "user", s.User)
	setIf(params, "set", s.Set)
	if len(s.IPs) > 0 {
		params["ip[]"] = s.IPs
	}
	return c.Call(ctx, endpoint.SendIPAdd, params)
}

// GetSendIPs lists the sending IPs of a subuser, or of the account when user is empty.
func (c *Client) GetSendIPs(ctx context.Context, user string) (*Result, error) {
	params := url.Values{"list": {"all"}}
	setIf(params, "user", user)
	return c.Call(ctx, endpoint.SendIPGet, params)
}

// ActivateApp enables an app for a subuser.
func (c *Client) ActivateApp(ctx context.Context, user, name string) (*Result, error) {
	return c.Call(ctx, endpoint.AppsActivate, url.Values{
		"task": {"activate"},
		"user": {user},
		"name": {name},
	})
}

// CustomizeApp configures an app for a subuser. Settings are sent as extra
// form fields and cannot override task, user or name.
func (c *Client) CustomizeApp(ctx context.Context, user, name string, settings map[string]string) (*Result, error) {
	params := url.Values{}
	for k, v := range settings {
		params.Set(k, v)
	}
	params.Set("task", "setup")
	params.Set("user", user)
	params.Set("name", name)
	return c.Call(ctx, endpoint.AppsCustomize, params)
}
