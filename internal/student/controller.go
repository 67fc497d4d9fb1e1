// Package student lets a student find today's open trips, join them and
// confirm their own presence.
package student

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"rollcall/internal/journal"
	"rollcall/internal/model"
)

var ErrNotLoaded = errors.New("trips not loaded yet")

type AttendanceAPI interface {
	ListForTrip(ctx context.Context, tripID int64) ([]model.Attendance, error)
	Join(ctx context.Context, tripID int64) (model.Attendance, error)
	Confirm(ctx context.Context, tripID, studentID int64) (model.Attendance, error)
}

type TripAPI interface {
	ListTrips(ctx context.Context) ([]model.Trip, error)
}

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	// Fanout caps concurrent per-trip attendance lookups during Load.
	Fanout   int
	Location *time.Location
	Journal  *journal.Recorder
}

// View is one trip with the student's record and the actions it allows.
type View struct {
	Trip       model.Trip        `json:"trip"`
	RouteLabel string            `json:"route_label"`
	Attendance *model.Attendance `json:"attendance,omitempty"`
	Closed     bool              `json:"closed"`
	CanJoin    bool              `json:"can_join"`
	CanConfirm bool              `json:"can_confirm"`
}

// Controller holds one student's trips and attendance records.
type Controller struct {
	attendance AttendanceAPI
	trips      TripAPI
	studentID  int64
	fanout     int
	loc        *time.Location
	journal    *journal.Recorder
	now        func() time.Time

	mu     sync.RWMutex
	loaded bool
	all    []model.Trip
	mine   map[int64]model.Attendance

	// loadSeq counts Load calls; touched records the loadSeq at which a
	// Join or Confirm last wrote a trip's record.
	loadSeq uint64
	touched map[int64]uint64
}

func New(attendance AttendanceAPI, trips TripAPI, studentID int64, opts Options) *Controller {
	if opts.Fanout <= 0 {
		opts.Fanout = 8
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Controller{
		attendance: attendance,
		trips:      trips,
		studentID:  studentID,
		fanout:     opts.Fanout,
		loc:        opts.Location,
		journal:    opts.Journal,
		now:        time.Now,
		mine:       make(map[int64]model.Attendance),
		touched:    make(map[int64]uint64),
	}
}

type lookup struct {
	tripID int64
	record model.Attendance
	found  bool
}

// Load lists every trip and finds the student's record on each one. The API
// has no per-student query, so this costs one call per trip, capped at
// Fanout in flight. A failed lookup counts as "no record" for that trip.
// Records written by Join or Confirm while Load runs win over its snapshot,
// and a Load overtaken by a newer one is discarded.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	trips, err := c.trips.ListTrips(ctx)
	if err != nil {
		return err
	}

	p := pool.NewWithResults[lookup]().WithMaxGoroutines(c.fanout)
	for _, trip := range trips {
		p.Go(func() lookup {
			records, err := c.attendance.ListForTrip(ctx, trip.ID)
			if err != nil {
				log.Warn().Err(err).Int64("trip_id", trip.ID).Int64("student_id", c.studentID).Msg("attendance lookup failed")
				return lookup{tripID: trip.ID}
			}
			for _, a := range records {
				if a.StudentID == c.studentID {
					return lookup{tripID: trip.ID, record: a, found: true}
				}
			}
			return lookup{tripID: trip.ID}
		})
	}

	mine := make(map[int64]model.Attendance)
	for _, l := range p.Wait() {
		if l.found {
			mine[l.tripID] = l.record
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.loadSeq {
		return nil
	}
	for tripID, at := range c.touched {
		if at == seq {
			if a, ok := c.mine[tripID]; ok {
				mine[tripID] = a
			}
		}
	}
	c.loaded = true
	c.all = trips
	c.mine = mine
	clear(c.touched)
	return nil
}

// TodayOpenTrips returns open trips dated today in the configured location,
// in server order.
func (c *Controller) TodayOpenTrips() ([]model.Trip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	start, end := dayBounds(c.now(), c.loc)
	out := make([]model.Trip, 0, len(c.all))
	for _, t := range c.all {
		at := t.DateTime.Time
		if t.Status == model.TripOpen && !at.Before(start) && at.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

// TodayViews is TodayOpenTrips joined with the student's records.
func (c *Controller) TodayViews() ([]View, error) {
	trips, err := c.TodayOpenTrips()
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(trips))
	for _, t := range trips {
		views = append(views, c.view(t))
	}
	return views, nil
}

// MyAttendanceFor returns the student's record for tripID, if any.
func (c *Controller) MyAttendanceFor(tripID int64) (model.Attendance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.mine[tripID]
	return a, ok
}

// Join creates the student's record and merges it locally. Failures leave
// local state untouched.
func (c *Controller) Join(ctx context.Context, tripID int64) (model.Attendance, error) {
	a, err := c.attendance.Join(ctx, tripID)
	if err != nil {
		return model.Attendance{}, err
	}
	if a.TripID == 0 {
		a.TripID = tripID
	}
	if a.StudentID == 0 {
		a.StudentID = c.studentID
	}

	c.mu.Lock()
	c.mine[tripID] = a
	c.touched[tripID] = c.loadSeq
	c.mu.Unlock()

	sid := c.studentID
	detail := ""
	if a.IsWaitlist {
		detail = "waitlist"
	}
	c.journal.Record(ctx, journal.Entry{Type: journal.TypeJoined, TripID: tripID, StudentID: &sid, ActorID: c.studentID, Detail: detail})
	return a, nil
}

// Confirm confirms the student's own presence and updates the local record.
func (c *Controller) Confirm(ctx context.Context, tripID int64) (model.Attendance, error) {
	a, err := c.attendance.Confirm(ctx, tripID, c.studentID)
	if err != nil {
		return model.Attendance{}, err
	}

	c.mu.Lock()
	prev, ok := c.mine[tripID]
	if ok {
		prev.Status = model.AttendanceConfirmed
		prev.ConfirmedAt = a.ConfirmedAt
		prev.ConfirmedByID = a.ConfirmedByID
		a = prev
	} else {
		a.Status = model.AttendanceConfirmed
	}
	c.mine[tripID] = a
	c.touched[tripID] = c.loadSeq
	c.mu.Unlock()

	sid := c.studentID
	c.journal.Record(ctx, journal.Entry{Type: journal.TypeConfirmed, TripID: tripID, StudentID: &sid, ActorID: c.studentID})
	return a, nil
}

// Trip returns a loaded trip by ID.
func (c *Controller) Trip(tripID int64) (model.Trip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := slices.IndexFunc(c.all, func(t model.Trip) bool { return t.ID == tripID })
	if i < 0 {
		return model.Trip{}, false
	}
	return c.all[i], true
}

// Closed reports whether a trip shows no actions regardless of attendance.
func Closed(t model.Trip) bool {
	return t.Closed()
}

// CanJoin is true for a trip that is not closed and has no record yet.
func CanJoin(t model.Trip, a *model.Attendance) bool {
	return !Closed(t) && a == nil
}

// CanConfirm is true for a pending record on a trip that is not closed.
func CanConfirm(t model.Trip, a *model.Attendance) bool {
	return !Closed(t) && a != nil && a.Status == model.AttendancePending
}

func (c *Controller) view(t model.Trip) View {
	v := View{Trip: t, RouteLabel: t.RouteLabel(), Closed: Closed(t)}
	if a, ok := c.MyAttendanceFor(t.ID); ok {
		v.Attendance = &a
	}
	v.CanJoin = CanJoin(t, v.Attendance)
	v.CanConfirm = CanConfirm(t, v.Attendance)
	return v
}

func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
