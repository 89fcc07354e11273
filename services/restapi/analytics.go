package restapi

import (
	"context"
	"encoding/json"
	"net/http"
)

// ActionHistory lists the latest actions performed on the platform.
func (c *Client) ActionHistory(ctx context.Context, token string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, "/action-history", token, nil, nil)
}

// MonthlySummary counts the users and courses created this month.
func (c *Client) MonthlySummary(ctx context.Context, token string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, "/analys", token, nil, nil)
}

// UsersLastSixMonths counts user sign-ups per month over the last six months.
func (c *Client) UsersLastSixMonths(ctx context.Context, token string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, "/user_in_6_month", token, nil, nil)
}
