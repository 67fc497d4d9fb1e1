package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceStatus is the server-side state of an attendance record.
type AttendanceStatus string

const (
	AttendanceConfirmed AttendanceStatus = "CONFIRMADO"
	AttendancePending   AttendanceStatus = "PENDENTE"
	AttendanceCancelled AttendanceStatus = "CANCELADO"
)

// TripStatus is the server-side state of a trip.
type TripStatus string

const (
	TripOpen      TripStatus = "ABERTA"
	TripClosed    TripStatus = "ENCERRADA"
	TripCancelled TripStatus = "CANCELADA"
)

// Role is the role carried by an authenticated user.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleResponsible Role = "RESPONSIBLE"
	RoleStudent     Role = "STUDENT"
)

// StudentProfile is the public profile embedded in attendance records.
type StudentProfile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attendance is a student's participation record for one trip.
type Attendance struct {
	ID            int64            `json:"id"`
	TripID        int64            `json:"travel_id"`
	StudentID     int64            `json:"student_id"`
	Status        AttendanceStatus `json:"status"`
	ConfirmedAt   *Timestamp       `json:"confirmed_at,omitempty"`
	ConfirmedByID *int64           `json:"confirmed_by_id,omitempty"`
	IsWaitlist    bool             `json:"is_waitlist"`
	Student       *StudentProfile  `json:"student,omitempty"`
}

// StudentName returns the embedded student's name or "N/A" when the server
// did not join the profile.
func (a Attendance) StudentName() string {
	if a.Student == nil || a.Student.Name == "" {
		return "N/A"
	}
	return a.Student.Name
}

// Bus is a vehicle that can be assigned to trips.
type Bus struct {
	ID       int64  `json:"id"`
	Plate    string `json:"plate"`
	Capacity int    `json:"capacity"`
}

// BusInput is the body for creating or updating a bus.
type BusInput struct {
	Plate    *string `json:"plate,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
}

// Route is an origin/destination pair served by trips.
type Route struct {
	ID          int64  `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// Label renders the route as "Origin → Destination".
func (r Route) Label() string {
	return r.Origin + " → " + r.Destination
}

// RouteInput is the body for creating or updating a route.
type RouteInput struct {
	Origin      *string `json:"origin,omitempty"`
	Destination *string `json:"destination,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Trip is a scheduled transport event.
type Trip struct {
	ID       int64      `json:"id"`
	DateTime Timestamp  `json:"date_time"`
	BusID    int64      `json:"bus_id"`
	RouteID  int64      `json:"route_id"`
	Status   TripStatus `json:"status"`
	Bus      *Bus       `json:"bus,omitempty"`
	Route    *Route     `json:"route,omitempty"`
}

// Closed reports whether the trip no longer accepts attendance actions.
func (t Trip) Closed() bool {
	return t.Status == TripClosed || t.Status == TripCancelled
}

// RouteLabel returns the route label or "N/A".
func (t Trip) RouteLabel() string {
	if t.Route == nil {
		return "N/A"
	}
	return t.Route.Label()
}

// BusPlate returns the bus plate or "N/A".
func (t Trip) BusPlate() string {
	if t.Bus == nil || t.Bus.Plate == "" {
		return "N/A"
	}
	return t.Bus.Plate
}

// TripInput is the body for creating a trip.
type TripInput struct {
	DateTime Timestamp `json:"date_time"`
	BusID    int64     `json:"bus_id"`
	RouteID  int64     `json:"route_id"`
}

// User is an account known to the API.
type User struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
	Role     Role    `json:"role"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UserInput is the body for signup or user updates.
type UserInput struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Credentials is the login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// NaiveLocation is the zone used for timestamps the API sends without an
// offset. cmd/api sets it from TIMEZONE at startup.
var NaiveLocation = time.Local

// Timestamp accepts both RFC 3339 and the zone-less ISO layout the API emits.
// Zone-less values are read in NaiveLocation.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, NaiveLocation); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
