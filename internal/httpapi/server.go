// Package httpapi is the gateway's HTTP surface: a gin router that keeps one
// workspace per bearer token and forwards to the transport API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/apiclient"
	"rollcall/internal/auth"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/journal"
	"rollcall/internal/logging"
	"rollcall/internal/model"
)

// JournalLister reads stored journal entries.
type JournalLister interface {
	List(ctx context.Context, f journal.Filter) ([]journal.Entry, error)
}

// Deps wires the router.
type Deps struct {
	API     *apiclient.Client
	Journal *journal.Recorder
	// Entries is nil when no database is configured.
	Entries JournalLister
	// Health checks reported by /healthz, by name.
	Health map[string]func(ctx context.Context) bool

	Issuer string
	// SigningKey, when set, makes the gateway verify token signatures itself.
	SigningKey      string
	CORSOrigins     []string
	RateLimitPerMin int
	Fanout          int
	Location        *time.Location
}

type server struct {
	deps     Deps
	registry *Registry
}

// NewRouter builds the gin engine.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	s := &server{
		deps:     deps,
		registry: NewRegistry(deps.API, deps.Journal, deps.Fanout, deps.Location),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Gin("/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))
	r.Use(securityHeaders())

	limiter := httpmiddleware.NewTokenBucket(deps.RateLimitPerMin, deps.RateLimitPerMin)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.POST("/auth/login", limiter.Middleware(nil), s.login)

	authed := v1.Group("", auth.Bearer(deps.Issuer, deps.SigningKey), limiter.Middleware(nil), s.workspace())
	authed.GET("/auth/me", s.me)
	authed.POST("/auth/logout", s.logout)

	rosterGroup := authed.Group("/roster", s.requireRole(model.RoleAdmin, model.RoleResponsible))
	rosterGroup.GET("", s.listRoster)
	rosterGroup.POST("/passengers", s.addPassenger)
	rosterGroup.DELETE("/passengers/:id", s.removePassenger)
	rosterGroup.PUT("/passengers/:id/presence", s.setPresence)
	rosterGroup.POST("/reset", s.resetRoster)
	rosterGroup.GET("/export/list", s.exportList)
	rosterGroup.GET("/export/call", s.exportCall)

	callGroup := authed.Group("/call", s.requireRole(model.RoleAdmin, model.RoleResponsible))
	callGroup.GET("/trips", s.callTrips)
	callGroup.POST("/trips/:id/select", s.selectTrip)
	callGroup.GET("/roster", s.callRoster)
	callGroup.POST("/presence", s.markPresence)
	callGroup.POST("/close", s.closeTrip)

	studentGroup := authed.Group("/student", s.requireRole(model.RoleStudent))
	studentGroup.GET("/trips", s.studentTrips)
	studentGroup.POST("/trips/:id/join", s.joinTrip)
	studentGroup.POST("/trips/:id/confirm", s.confirmTrip)

	adminGroup := authed.Group("/admin", s.requireRole(model.RoleAdmin))
	adminGroup.GET("/overview", s.overview)
	adminGroup.GET("/buses", s.listBuses)
	adminGroup.GET("/buses/:id", s.getBus)
	adminGroup.POST("/buses", s.createBus)
	adminGroup.PUT("/buses/:id", s.updateBus)
	adminGroup.DELETE("/buses/:id", s.deleteBus)
	adminGroup.GET("/routes", s.listRoutes)
	adminGroup.POST("/routes", s.createRoute)
	adminGroup.PUT("/routes/:id", s.updateRoute)
	adminGroup.DELETE("/routes/:id", s.deleteRoute)
	adminGroup.GET("/users", s.listUsers)
	adminGroup.POST("/users", s.createUser)
	adminGroup.PUT("/users/:id", s.updateUser)
	adminGroup.DELETE("/users/:id", s.deleteUser)
	adminGroup.GET("/travels", s.listTravels)
	adminGroup.POST("/travels", s.createTravel)
	adminGroup.PATCH("/travels/:id/status", s.updateTravelStatus)

	authed.GET("/journal", s.requireRole(model.RoleAdmin, model.RoleResponsible), s.listJournal)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	cfg.MaxAge = 24 * time.Hour
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func (s *server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "workspaces": s.registry.Len()}
	status := http.StatusOK
	for name, check := range s.deps.Health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

const workspaceKey = "workspace"

// workspace attaches the caller's workspace. It runs after auth.Bearer.
func (s *server) workspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		var expires time.Time
		if claims, ok := auth.FromContext(c); ok && claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
		c.Set(workspaceKey, s.registry.Get(auth.TokenFromContext(c), expires))
		c.Next()
	}
}

func workspaceOf(c *gin.Context) *Workspace {
	return c.MustGet(workspaceKey).(*Workspace)
}

// requireRole resolves the caller's user and rejects other roles with 403.
func (s *server) requireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := workspaceOf(c).User(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	}
}

func (s *server) login(c *gin.Context) {
	var req model.Credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	token, err := s.deps.API.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	var expires time.Time
	if claims, _, err := auth.Read(token.AccessToken, s.deps.Issuer, s.deps.SigningKey, time.Now()); err == nil && claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	ws := s.registry.Get(token.AccessToken, expires)
	u, err := ws.User(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token.AccessToken, "token_type": token.TokenType, "user": u})
}

func (s *server) me(c *gin.Context) {
	u, err := workspaceOf(c).User(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *server) logout(c *gin.Context) {
	workspaceOf(c).Session.Clear()
	c.Status(http.StatusNoContent)
}

func (s *server) listJournal(c *gin.Context) {
	if s.deps.Entries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal storage not configured"})
		return
	}
	f := journal.Filter{
		TripID: queryInt64(c, "trip_id", 0),
		Type:   c.Query("type"),
		Limit:  int(queryInt64(c, "limit", 50)),
		Offset: int(queryInt64(c, "offset", 0)),
	}
	entries, err := s.deps.Entries.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
