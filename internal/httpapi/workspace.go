package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rollcall/internal/apiclient"
	"rollcall/internal/call"
	"rollcall/internal/journal"
	"rollcall/internal/metrics"
	"rollcall/internal/model"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/student"
)

// Workspace is everything one logged-in token owns: its session, an API
// client bound to it, the day's roster and the controllers. It lives until
// logout, a 401 from the API, or token expiry.
type Workspace struct {
	Session *session.Session
	Client  *apiclient.Client
	Roster  *roster.Store

	expires time.Time
	opts    *registryOptions

	mu      sync.Mutex
	call    *call.Controller
	student *student.Controller
}

// User returns the session's user, asking the API on first use.
func (w *Workspace) User(ctx context.Context) (model.User, error) {
	if u, ok := w.Session.User(); ok {
		return u, nil
	}
	u, err := w.Client.Me(ctx)
	if err != nil {
		return model.User{}, err
	}
	w.Session.SetUser(u)
	return u, nil
}

// Call returns the call controller, creating it for the session's user.
func (w *Workspace) Call(ctx context.Context) (*call.Controller, error) {
	u, err := w.User(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.call == nil {
		w.call = call.New(w.Client, w.Client, w.opts.journal, u.ID)
	}
	return w.call, nil
}

// Student returns the self-service controller for the session's user.
func (w *Workspace) Student(ctx context.Context) (*student.Controller, error) {
	u, err := w.User(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.student == nil {
		w.student = student.New(w.Client, w.Client, u.ID, student.Options{
			Fanout:   w.opts.fanout,
			Location: w.opts.location,
			Journal:  w.opts.journal,
		})
	}
	return w.student, nil
}

type registryOptions struct {
	journal  *journal.Recorder
	fanout   int
	location *time.Location
}

// Registry maps bearer tokens to workspaces.
type Registry struct {
	api  *apiclient.Client
	opts registryOptions
	now  func() time.Time

	mu    sync.Mutex
	byKey map[string]*Workspace
}

func NewRegistry(api *apiclient.Client, rec *journal.Recorder, fanout int, loc *time.Location) *Registry {
	return &Registry{
		api:   api,
		opts:  registryOptions{journal: rec, fanout: fanout, location: loc},
		now:   time.Now,
		byKey: make(map[string]*Workspace),
	}
}

// Get returns the workspace for token, creating it on first sight. expires
// is the token expiry, zero when unknown.
func (r *Registry) Get(token string, expires time.Time) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	if ws, ok := r.byKey[token]; ok {
		return ws
	}

	sess := session.New(token)
	ws := &Workspace{
		Session: sess,
		Client:  r.api.WithSession(sess, sess.Clear),
		Roster:  roster.NewStore(),
		expires: expires,
		opts:    &r.opts,
	}
	sess.OnClear(func() { r.drop(token) })
	r.byKey[token] = ws
	metrics.SetWorkspaces(len(r.byKey))
	return ws
}

// Len is the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

func (r *Registry) drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[token]; !ok {
		return
	}
	delete(r.byKey, token)
	metrics.SetWorkspaces(len(r.byKey))
	log.Debug().Msg("workspace dropped")
}

func (r *Registry) sweepLocked() {
	now := r.now()
	for token, ws := range r.byKey {
		if !ws.expires.IsZero() && !now.Before(ws.expires) {
			delete(r.byKey, token)
		}
	}
	metrics.SetWorkspaces(len(r.byKey))
}
