// Package admin builds the administrator dashboard.
package admin

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"rollcall/internal/model"
)

type API interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListBuses(ctx context.Context) ([]model.Bus, error)
	ListRoutes(ctx context.Context) ([]model.Route, error)
	ListTrips(ctx context.Context) ([]model.Trip, error)
}

// TripRow is a trip joined with its bus and route for display.
type TripRow struct {
	Trip       model.Trip `json:"trip"`
	BusPlate   string     `json:"bus_plate"`
	RouteLabel string     `json:"route_label"`
}

type Counts struct {
	Users     int `json:"users"`
	Buses     int `json:"buses"`
	Routes    int `json:"routes"`
	Trips     int `json:"trips"`
	OpenTrips int `json:"open_trips"`
}

type Overview struct {
	Counts Counts        `json:"counts"`
	Users  []model.User  `json:"users"`
	Buses  []model.Bus   `json:"buses"`
	Routes []model.Route `json:"routes"`
	Trips  []TripRow     `json:"trips"`
	// Failed names the lists that could not be loaded and are shown empty.
	Failed []string `json:"failed,omitempty"`
}

// Load fetches the four lists in parallel. A failing list is reported in
// Failed and left empty; it never fails the others.
func Load(ctx context.Context, api API) Overview {
	var (
		wg     conc.WaitGroup
		users  []model.User
		buses  []model.Bus
		routes []model.Route
		trips  []model.Trip
		errs   [4]error
	)
	wg.Go(func() { users, errs[0] = api.ListUsers(ctx) })
	wg.Go(func() { buses, errs[1] = api.ListBuses(ctx) })
	wg.Go(func() { routes, errs[2] = api.ListRoutes(ctx) })
	wg.Go(func() { trips, errs[3] = api.ListTrips(ctx) })
	wg.Wait()

	var o Overview
	for i, name := range []string{"users", "buses", "routes", "trips"} {
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Str("list", name).Msg("overview list failed")
			o.Failed = append(o.Failed, name)
		}
	}
	o.Users = orEmpty(users, errs[0])
	o.Buses = orEmpty(buses, errs[1])
	o.Routes = orEmpty(routes, errs[2])
	o.Trips = tripRows(orEmpty(trips, errs[3]), o.Buses, o.Routes)

	o.Counts = Counts{Users: len(o.Users), Buses: len(o.Buses), Routes: len(o.Routes), Trips: len(o.Trips)}
	for _, r := range o.Trips {
		if r.Trip.Status == model.TripOpen {
			o.Counts.OpenTrips++
		}
	}
	return o
}

func orEmpty[T any](items []T, err error) []T {
	if err != nil || items == nil {
		return []T{}
	}
	return items
}

// tripRows fills bus and route from the loaded lists when the API did not
// embed them.
func tripRows(trips []model.Trip, buses []model.Bus, routes []model.Route) []TripRow {
	busByID := make(map[int64]model.Bus, len(buses))
	for _, b := range buses {
		busByID[b.ID] = b
	}
	routeByID := make(map[int64]model.Route, len(routes))
	for _, r := range routes {
		routeByID[r.ID] = r
	}

	rows := make([]TripRow, 0, len(trips))
	for _, t := range trips {
		if t.Bus == nil {
			if b, ok := busByID[t.BusID]; ok {
				t.Bus = &b
			}
		}
		if t.Route == nil {
			if r, ok := routeByID[t.RouteID]; ok {
				t.Route = &r
			}
		}
		rows = append(rows, TripRow{Trip: t, BusPlate: t.BusPlate(), RouteLabel: t.RouteLabel()})
	}
	return rows
}
