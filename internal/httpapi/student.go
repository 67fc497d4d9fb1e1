package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/student"
)

func (s *server) studentController(c *gin.Context) (*student.Controller, bool) {
	ctrl, err := workspaceOf(c).Student(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return ctrl, true
}

// studentTrips reloads trips and records on every call, like a page load.
func (s *server) studentTrips(c *gin.Context) {
	ctrl, ok := s.studentController(c)
	if !ok {
		return
	}
	if err := ctrl.Load(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	views, err := ctrl.TodayViews()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": views})
}

func (s *server) joinTrip(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ctrl, ok := s.studentController(c)
	if !ok {
		return
	}
	a, err := ctrl.Join(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *server) confirmTrip(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ctrl, ok := s.studentController(c)
	if !ok {
		return
	}
	a, err := ctrl.Confirm(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
