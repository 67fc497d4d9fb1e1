package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"rollcall/internal/model"
)

// ListForTrip returns every attendance record of a trip.
func (c *Client) ListForTrip(ctx context.Context, tripID int64) ([]model.Attendance, error) {
	var out []model.Attendance
	if err := c.do(ctx, "attendances.list", http.MethodGet, fmt.Sprintf("/attendances/travel/%d", tripID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Join creates a pending attendance record for the calling student. The API
// decides whether the record lands on the waitlist.
func (c *Client) Join(ctx context.Context, tripID int64) (model.Attendance, error) {
	var out model.Attendance
	err := c.do(ctx, "attendances.join", http.MethodPost, fmt.Sprintf("/attendances/join/%d", tripID), nil, &out)
	return out, err
}

// Confirm marks a student's record of a trip as confirmed.
func (c *Client) Confirm(ctx context.Context, tripID, studentID int64) (model.Attendance, error) {
	var out model.Attendance
	err := c.do(ctx, "attendances.confirm", http.MethodPost, fmt.Sprintf("/attendances/confirm/%d/%d", tripID, studentID), nil, &out)
	return out, err
}

// Close finalizes a trip's attendance and closes the trip.
func (c *Client) Close(ctx context.Context, tripID int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, "attendances.close", http.MethodPost, fmt.Sprintf("/attendances/close/%d", tripID), nil, &out)
	return out.Message, err
}
