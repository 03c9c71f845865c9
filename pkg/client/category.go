package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/sendgrid-newsletter/pkg/endpoint"
)

// statsDateLayout is the date format of the stats API.
const statsDateLayout = "2006-01-02"

// StatsQuery selects category statistics for a subuser.
type StatsQuery struct {
	Category  string
	User      string
	Days      int
	StartDate time.Time
	EndDate   time.Time
}

// CreateCategory creates a newsletter category.
func (c *Client) CreateCategory(ctx context.Context, category string) (*Result, error) {
	return c.Call(ctx, endpoint.CategoryCreate, url.Values{"category": {category}})
}

// AddCategory tags a newsletter with a category.
func (c *Client) AddCategory(ctx context.Context, category, newsletter string) (*Result, error) {
	return c.Call(ctx, endpoint.CategoryAdd, url.Values{"category": {category}, "name": {newsletter}})
}

// DeleteCategory removes a category from a newsletter.
func (c *Client) DeleteCategory(ctx context.Context, category, newsletter string) (*Result, error) {
	return c.Call(ctx, endpoint.CategoryDelete, url.Values{"category": {category}, "name": {newsletter}})
}

// ListCategories lists categories, optionally filtered.
func (c *Client) ListCategories(ctx context.Context, category string) (*Result, error) {
	return c.Call(ctx, endpoint.CategoryList, optional("category", category))
}

// GetCategoryStats fetches delivery statistics for a category.
func (c *Client) GetCategoryStats(ctx context.Context, q StatsQuery) (*Result, error) {
	params := url.Values{"category": {q.Category}, "user": {q.User}}
	if q.Days > 0 {
		params.Set("days", strconv.Itoa(q.Days))
	}
	if !q.StartDate.IsZero() {
		params.Set("start_date", q.StartDate.Format(statsDateLayout))
	}
	if !q.EndDate.IsZero() {
		params.Set("end_date", q.EndDate.Format(statsDateLayout))
	}
	return c.Call(ctx, endpoint.StatsGet, params)
}

// GetUnsubscribes lists unsubscribed addresses.
func (c *Client) GetUnsubscribes(ctx context.Context) (*Result, error) {
	return c.Call(ctx, endpoint.UnsubscribesGet, nil)
}

// AddUnsubscribe records an address as unsubscribed.
func (c *Client) AddUnsubscribe(ctx context.Context, email string) (*Result, error) {
	return c.Call(ctx, endpoint.UnsubscribesAdd, url.Values{"email": {email}})
}
