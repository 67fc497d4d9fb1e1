package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"rollcall/internal/model"
)

// Buses

func (c *Client) ListBuses(ctx context.Context) ([]model.Bus, error) {
	var out []model.Bus
	if err := c.do(ctx, "buses.list", http.MethodGet, "/buses/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBus(ctx context.Context, id int64) (model.Bus, error) {
	var out model.Bus
	err := c.do(ctx, "buses.get", http.MethodGet, fmt.Sprintf("/buses/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateBus(ctx context.Context, in model.BusInput) (model.Bus, error) {
	var out model.Bus
	err := c.do(ctx, "buses.create", http.MethodPost, "/buses/", in, &out)
	return out, err
}

func (c *Client) UpdateBus(ctx context.Context, id int64, in model.BusInput) (model.Bus, error) {
	var out model.Bus
	err := c.do(ctx, "buses.update", http.MethodPut, fmt.Sprintf("/buses/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteBus(ctx context.Context, id int64) error {
	return c.do(ctx, "buses.delete", http.MethodDelete, fmt.Sprintf("/buses/%d", id), nil, nil)
}

// Routes

func (c *Client) ListRoutes(ctx context.Context) ([]model.Route, error) {
	var out []model.Route
	if err := c.do(ctx, "routes.list", http.MethodGet, "/routes/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRoute(ctx context.Context, in model.RouteInput) (model.Route, error) {
	var out model.Route
	err := c.do(ctx, "routes.create", http.MethodPost, "/routes/", in, &out)
	return out, err
}

func (c *Client) UpdateRoute(ctx context.Context, id int64, in model.RouteInput) (model.Route, error) {
	var out model.Route
	err := c.do(ctx, "routes.update", http.MethodPut, fmt.Sprintf("/routes/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteRoute(ctx context.Context, id int64) error {
	return c.do(ctx, "routes.delete", http.MethodDelete, fmt.Sprintf("/routes/%d", id), nil, nil)
}

// Users

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.do(ctx, "users.list", http.MethodGet, "/users/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser registers an account through the signup endpoint.
func (c *Client) CreateUser(ctx context.Context, in model.UserInput) (model.User, error) {
	var out model.User
	err := c.do(ctx, "users.create", http.MethodPost, "/auth/signup", in, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in model.UserInput) (model.User, error) {
	var out model.User
	err := c.do(ctx, "users.update", http.MethodPut, fmt.Sprintf("/users/%d", id), in, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, "users.delete", http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}
