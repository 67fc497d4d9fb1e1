package call

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rollcall/internal/apiclient"
	"rollcall/internal/journal"
	"rollcall/internal/model"
	"rollcall/internal/queue"
)

type fakeAPI struct {
	mu       sync.Mutex
	trips    []model.Trip
	tripsErr error
	rosters  map[int64][]model.Attendance
	listHook func(tripID int64)
	confirm  func(tripID, studentID int64) (model.Attendance, error)
	closeErr error
	closed   []int64
}

func (f *fakeAPI) ListTrips(ctx context.Context) ([]model.Trip, error) {
	return f.trips, f.tripsErr
}

func (f *fakeAPI) ListForTrip(ctx context.Context, tripID int64) ([]model.Attendance, error) {
	if f.listHook != nil {
		f.listHook(tripID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	roster, ok := f.rosters[tripID]
	if !ok {
		return nil, &apiclient.Error{Op: "attendances.list", Kind: apiclient.ErrNotFound, Status: 404}
	}
	return append([]model.Attendance(nil), roster...), nil
}

func (f *fakeAPI) Confirm(ctx context.Context, tripID, studentID int64) (model.Attendance, error) {
	return f.confirm(tripID, studentID)
}

func (f *fakeAPI) Close(ctx context.Context, tripID int64) (string, error) {
	if f.closeErr != nil {
		return "", f.closeErr
	}
	f.closed = append(f.closed, tripID)
	return "Travel closed", nil
}

func sampleAPI() *fakeAPI {
	return &fakeAPI{
		trips: []model.Trip{
			{ID: 5, Status: model.TripOpen},
			{ID: 6, Status: model.TripClosed},
			{ID: 7, Status: model.TripOpen},
		},
		rosters: map[int64][]model.Attendance{
			5: {
				{ID: 1, TripID: 5, StudentID: 9, Status: model.AttendanceCancelled},
				{ID: 2, TripID: 5, StudentID: 10, Status: model.AttendancePending, Student: &model.StudentProfile{ID: 10, Name: "Ana"}},
				{ID: 3, TripID: 5, StudentID: 11, Status: model.AttendancePending, IsWaitlist: true},
			},
			7: {},
		},
	}
}

func TestLoadTripsKeepsOpenInServerOrder(t *testing.T) {
	c := New(sampleAPI(), sampleAPI(), nil, 1)
	trips, err := c.LoadTrips(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trips) != 2 || trips[0].ID != 5 || trips[1].ID != 7 {
		t.Fatalf("unexpected open trips %+v", trips)
	}
	if c.State() != Unselected {
		t.Fatalf("loading trips must not select one")
	}
}

func TestSelectAndSummary(t *testing.T) {
	api := sampleAPI()
	c := New(api, api, nil, 1)
	if err := c.SelectTrip(context.Background(), model.Trip{ID: 5}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if c.State() != Loaded {
		t.Fatalf("expected Loaded")
	}
	got := c.Summary()
	want := Summary{Confirmed: 0, Pending: 2, Cancelled: 1, Waitlisted: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	rows := c.Rows()
	if rows[0].StudentName != "N/A" || rows[1].StudentName != "Ana" {
		t.Fatalf("unexpected names %+v", rows)
	}

	// Switching trips discards the previous roster.
	if err := c.SelectTrip(context.Background(), model.Trip{ID: 7}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(c.Rows()) != 0 {
		t.Fatalf("expected empty roster for trip 7")
	}
}

func TestSelectFailureKeepsPreviousSelection(t *testing.T) {
	api := sampleAPI()
	c := New(api, api, nil, 1)
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})

	err := c.SelectTrip(context.Background(), model.Trip{ID: 404})
	if !errors.Is(err, apiclient.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	trip, ok := c.Selected()
	if !ok || trip.ID != 5 || len(c.Rows()) != 3 {
		t.Fatalf("expected trip 5 to stay selected, got %+v", trip)
	}
}

func TestMarkPresenceConfirms(t *testing.T) {
	api := sampleAPI()
	api.confirm = func(tripID, studentID int64) (model.Attendance, error) {
		return model.Attendance{ID: 2, TripID: tripID, StudentID: studentID, Status: model.AttendanceConfirmed}, nil
	}
	q := queue.NewInMemory(4)
	c := New(api, api, journal.NewRecorder(q), 1)
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})

	row, err := c.MarkPresence(context.Background(), 10, true)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if row.Attendance.Status != model.AttendanceConfirmed || row.StudentName != "Ana" {
		t.Fatalf("unexpected row %+v", row)
	}
	if s := c.Summary(); s.Confirmed != 1 || s.Pending != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}

	messages, _ := q.Consume(context.Background())
	msg := <-messages
	if msg.Type != journal.TypeConfirmed {
		t.Fatalf("expected confirmed journal entry, got %s", msg.Type)
	}
}

func TestMarkAbsentIsLocal(t *testing.T) {
	api := sampleAPI()
	api.confirm = func(int64, int64) (model.Attendance, error) {
		t.Fatalf("absent must not call the API")
		return model.Attendance{}, nil
	}
	c := New(api, api, nil, 1)
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})

	row, err := c.MarkPresence(context.Background(), 11, false)
	if err != nil || !row.MarkedAbsent {
		t.Fatalf("expected local absent mark, got %+v %v", row, err)
	}
	if row.Attendance.Status != model.AttendancePending {
		t.Fatalf("server status must be untouched")
	}
	if c.Summary().MarkedAbsent != 1 {
		t.Fatalf("expected one marked absent")
	}
}

func TestConfirmCancelledConflictKeepsState(t *testing.T) {
	api := sampleAPI()
	api.confirm = func(int64, int64) (model.Attendance, error) {
		return model.Attendance{}, &apiclient.Error{Op: "attendances.confirm", Kind: apiclient.ErrConflict, Status: 409, Detail: "Attendance cancelled"}
	}
	c := New(api, api, nil, 1)
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})

	_, err := c.MarkPresence(context.Background(), 9, true)
	if !errors.Is(err, apiclient.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := c.Rows()[0].Attendance.Status; got != model.AttendanceCancelled {
		t.Fatalf("expected record to stay cancelled, got %s", got)
	}
}

func TestMarkPresenceRequiresSelection(t *testing.T) {
	api := sampleAPI()
	c := New(api, api, nil, 1)
	if _, err := c.MarkPresence(context.Background(), 9, true); !errors.Is(err, ErrNoTripSelected) {
		t.Fatalf("expected ErrNoTripSelected, got %v", err)
	}
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})
	if _, err := c.MarkPresence(context.Background(), 99, false); !errors.Is(err, ErrNotOnRoster) {
		t.Fatalf("expected ErrNotOnRoster, got %v", err)
	}
}

func TestCloseTrip(t *testing.T) {
	api := sampleAPI()
	c := New(api, api, nil, 1)
	_, _ = c.LoadTrips(context.Background())
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})

	msg, err := c.CloseTrip(context.Background())
	if err != nil || msg != "Travel closed" {
		t.Fatalf("unexpected close result %q %v", msg, err)
	}
	if c.State() != Unselected || len(c.Rows()) != 0 {
		t.Fatalf("expected Unselected with empty roster")
	}
	open := c.OpenTrips()
	if len(open) != 1 || open[0].ID != 7 {
		t.Fatalf("expected trip 5 removed from open list, got %+v", open)
	}
	if _, err := c.CloseTrip(context.Background()); !errors.Is(err, ErrNoTripSelected) {
		t.Fatalf("expected ErrNoTripSelected, got %v", err)
	}
}

func TestCloseFailureStaysLoaded(t *testing.T) {
	api := sampleAPI()
	api.closeErr = &apiclient.Error{Op: "attendances.close", Kind: apiclient.ErrServer, Status: 500}
	c := New(api, api, nil, 1)
	_, _ = c.LoadTrips(context.Background())
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})
	before := c.Rows()

	if _, err := c.CloseTrip(context.Background()); !errors.Is(err, apiclient.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if c.State() != Loaded {
		t.Fatalf("expected to stay Loaded")
	}
	if len(c.OpenTrips()) != 2 {
		t.Fatalf("trip must stay in the open list")
	}
	after := c.Rows()
	if len(after) != len(before) || after[1].Attendance != before[1].Attendance {
		t.Fatalf("roster changed after failed close")
	}
}

func TestStaleSelectionIsDiscarded(t *testing.T) {
	api := sampleAPI()
	release := make(chan struct{})
	started := make(chan struct{})
	api.listHook = func(tripID int64) {
		if tripID == 5 {
			close(started)
			<-release
		}
	}
	c := New(api, api, nil, 1)

	errc := make(chan error, 1)
	go func() { errc <- c.SelectTrip(context.Background(), model.Trip{ID: 5}) }()
	<-started

	if err := c.SelectTrip(context.Background(), model.Trip{ID: 7}); err != nil {
		t.Fatalf("select 7: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrStaleSelection) {
		t.Fatalf("expected slow response to be stale, got %v", err)
	}
	trip, _ := c.Selected()
	if trip.ID != 7 {
		t.Fatalf("expected trip 7 to remain selected, got %d", trip.ID)
	}
}

// stuckQueue blocks every publish until released or the publish times out.
type stuckQueue struct {
	entered chan struct{}
	release chan struct{}
}

func (q *stuckQueue) Publish(ctx context.Context, msg queue.Message) error {
	q.entered <- struct{}{}
	select {
	case <-q.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *stuckQueue) Consume(ctx context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("not consumable")
}

func TestSlowJournalDoesNotBlockReads(t *testing.T) {
	api := sampleAPI()
	api.confirm = func(tripID, studentID int64) (model.Attendance, error) {
		return model.Attendance{ID: 2, TripID: tripID, StudentID: studentID, Status: model.AttendanceConfirmed}, nil
	}
	q := &stuckQueue{entered: make(chan struct{}, 1), release: make(chan struct{})}
	c := New(api, api, journal.NewRecorder(q), 1)
	_ = c.SelectTrip(context.Background(), model.Trip{ID: 5})

	done := make(chan error, 1)
	go func() {
		_, err := c.MarkPresence(context.Background(), 10, true)
		done <- err
	}()
	<-q.entered

	summary := make(chan Summary, 1)
	go func() { summary <- c.Summary() }()
	select {
	case s := <-summary:
		if s.Confirmed != 1 {
			t.Fatalf("expected confirmation applied before publishing, got %+v", s)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Summary blocked while the journal entry was being published")
	}

	close(q.release)
	if err := <-done; err != nil {
		t.Fatalf("mark: %v", err)
	}
}
