// Package call drives a responsible's attendance-taking for one selected trip
// at a time.
package call

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"rollcall/internal/journal"
	"rollcall/internal/model"
)

var (
	ErrNoTripSelected = errors.New("no trip selected")
	ErrStaleSelection = errors.New("trip selection changed while the request was in flight")
	ErrNotOnRoster    = errors.New("student is not on the selected trip's roster")
)

// AttendanceAPI is the part of the transport API the controller calls.
type AttendanceAPI interface {
	ListForTrip(ctx context.Context, tripID int64) ([]model.Attendance, error)
	Confirm(ctx context.Context, tripID, studentID int64) (model.Attendance, error)
	Close(ctx context.Context, tripID int64) (string, error)
}

type TripAPI interface {
	ListTrips(ctx context.Context) ([]model.Trip, error)
}

type State int

const (
	Unselected State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unselected"
}

// Row is one roster line as shown to the responsible.
type Row struct {
	Attendance   model.Attendance `json:"attendance"`
	StudentName  string           `json:"student_name"`
	MarkedAbsent bool             `json:"marked_absent"`
}

// Summary counts the current roster by status.
type Summary struct {
	Confirmed    int `json:"confirmed"`
	Pending      int `json:"pending"`
	Cancelled    int `json:"cancelled"`
	Waitlisted   int `json:"waitlisted"`
	MarkedAbsent int `json:"marked_absent"`
}

// Controller holds one responsible's call state. Methods are safe for
// concurrent use; the lock is never held across API calls.
type Controller struct {
	attendance AttendanceAPI
	trips      TripAPI
	journal    *journal.Recorder
	actorID    int64

	mu         sync.Mutex
	generation uint64
	state      State
	openTrips  []model.Trip
	trip       model.Trip
	roster     []model.Attendance
	absent     map[int64]bool
}

// New creates a controller acting on behalf of actorID. rec may be nil.
func New(attendance AttendanceAPI, trips TripAPI, rec *journal.Recorder, actorID int64) *Controller {
	return &Controller{
		attendance: attendance,
		trips:      trips,
		journal:    rec,
		actorID:    actorID,
		absent:     make(map[int64]bool),
	}
}

// LoadTrips refreshes the open-trip list, keeping server order.
func (c *Controller) LoadTrips(ctx context.Context) ([]model.Trip, error) {
	all, err := c.trips.ListTrips(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]model.Trip, 0, len(all))
	for _, t := range all {
		if t.Status == model.TripOpen {
			open = append(open, t)
		}
	}

	c.mu.Lock()
	c.openTrips = open
	c.mu.Unlock()
	return slices.Clone(open), nil
}

// SelectTrip fetches the roster of trip and makes it the current selection.
// On failure the previous selection is kept. A response that arrives after a
// newer selection started is dropped with ErrStaleSelection.
func (c *Controller) SelectTrip(ctx context.Context, trip model.Trip) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	roster, err := c.attendance.ListForTrip(ctx, trip.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		log.Debug().Int64("trip_id", trip.ID).Msg("discarding stale roster")
		return ErrStaleSelection
	}
	if err != nil {
		return err
	}
	c.state = Loaded
	c.trip = trip
	c.roster = roster
	c.absent = make(map[int64]bool)
	return nil
}

// MarkPresence confirms the student on the server when present is true.
// Absent is a local display mark only; the API has no endpoint for it.
func (c *Controller) MarkPresence(ctx context.Context, studentID int64, present bool) (Row, error) {
	c.mu.Lock()
	if c.state != Loaded {
		c.mu.Unlock()
		return Row{}, ErrNoTripSelected
	}
	idx := c.indexOf(studentID)
	if idx < 0 {
		c.mu.Unlock()
		return Row{}, ErrNotOnRoster
	}
	if !present {
		c.absent[studentID] = true
		row := c.rowAt(idx)
		c.mu.Unlock()
		return row, nil
	}
	gen := c.generation
	tripID := c.trip.ID
	c.mu.Unlock()

	updated, err := c.attendance.Confirm(ctx, tripID, studentID)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return Row{}, ErrStaleSelection
	}
	if err != nil {
		c.mu.Unlock()
		return Row{}, err
	}
	idx = c.indexOf(studentID)
	if idx < 0 {
		c.mu.Unlock()
		return Row{}, ErrNotOnRoster
	}
	if updated.Student == nil {
		updated.Student = c.roster[idx].Student
	}
	c.roster[idx] = updated
	delete(c.absent, studentID)
	row := c.rowAt(idx)
	c.mu.Unlock()

	sid := studentID
	c.journal.Record(ctx, journal.Entry{Type: journal.TypeConfirmed, TripID: tripID, StudentID: &sid, ActorID: c.actorID})
	return row, nil
}

// CloseTrip closes the selected trip. On success the controller returns to
// Unselected and the trip leaves the open list; on failure nothing changes.
func (c *Controller) CloseTrip(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != Loaded {
		c.mu.Unlock()
		return "", ErrNoTripSelected
	}
	gen := c.generation
	tripID := c.trip.ID
	c.mu.Unlock()

	msg, err := c.attendance.Close(ctx, tripID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.openTrips = slices.DeleteFunc(c.openTrips, func(t model.Trip) bool { return t.ID == tripID })
	if gen == c.generation {
		c.state = Unselected
		c.trip = model.Trip{}
		c.roster = nil
		c.absent = make(map[int64]bool)
	}
	c.mu.Unlock()

	c.journal.Record(ctx, journal.Entry{Type: journal.TypeTripClosed, TripID: tripID, ActorID: c.actorID, Detail: msg})
	log.Info().Int64("trip_id", tripID).Int64("actor_id", c.actorID).Msg("trip closed")
	return msg, nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected returns the current trip when Loaded.
func (c *Controller) Selected() (model.Trip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trip, c.state == Loaded
}

func (c *Controller) OpenTrips() []model.Trip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.openTrips)
}

// Rows returns the roster in server order.
func (c *Controller) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([]Row, len(c.roster))
	for i := range c.roster {
		rows[i] = c.rowAt(i)
	}
	return rows
}

// Summary is recomputed from the current roster on every call.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s Summary
	for _, a := range c.roster {
		switch a.Status {
		case model.AttendanceConfirmed:
			s.Confirmed++
		case model.AttendancePending:
			s.Pending++
		case model.AttendanceCancelled:
			s.Cancelled++
		}
		if a.IsWaitlist {
			s.Waitlisted++
		}
		if c.absent[a.StudentID] {
			s.MarkedAbsent++
		}
	}
	return s
}

func (c *Controller) indexOf(studentID int64) int {
	return slices.IndexFunc(c.roster, func(a model.Attendance) bool { return a.StudentID == studentID })
}

func (c *Controller) rowAt(i int) Row {
	a := c.roster[i]
	return Row{Attendance: a, StudentName: a.StudentName(), MarkedAbsent: c.absent[a.StudentID]}
}
