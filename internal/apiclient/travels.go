package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"rollcall/internal/model"
)

func (c *Client) ListTrips(ctx context.Context) ([]model.Trip, error) {
	var out []model.Trip
	if err := c.do(ctx, "travels.list", http.MethodGet, "/travels/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTrip(ctx context.Context, in model.TripInput) (model.Trip, error) {
	var out model.Trip
	err := c.do(ctx, "travels.create", http.MethodPost, "/travels/", in, &out)
	return out, err
}

// UpdateTripStatus sends the status as a bare JSON string body.
func (c *Client) UpdateTripStatus(ctx context.Context, tripID int64, status model.TripStatus) (model.Trip, error) {
	var out model.Trip
	err := c.do(ctx, "travels.status", http.MethodPatch, fmt.Sprintf("/travels/%d/status", tripID), status, &out)
	return out, err
}
