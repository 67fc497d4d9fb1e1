package httpapi

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"rollcall/internal/call"
	"rollcall/internal/model"
)

func (s *server) callController(c *gin.Context) (*call.Controller, bool) {
	ctrl, err := workspaceOf(c).Call(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return ctrl, true
}

func (s *server) callTrips(c *gin.Context) {
	ctrl, ok := s.callController(c)
	if !ok {
		return
	}
	trips, err := ctrl.LoadTrips(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func (s *server) selectTrip(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	ctrl, ok := s.callController(c)
	if !ok {
		return
	}

	trip, found := findTrip(ctrl.OpenTrips(), id)
	if !found {
		trips, err := ctrl.LoadTrips(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		trip, found = findTrip(trips, id)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "trip is not open"})
		return
	}

	if err := ctrl.SelectTrip(c.Request.Context(), trip); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, callBody(ctrl))
}

func (s *server) callRoster(c *gin.Context) {
	ctrl, ok := s.callController(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, callBody(ctrl))
}

func (s *server) markPresence(c *gin.Context) {
	var req struct {
		StudentID int64 `json:"student_id" binding:"required"`
		Present   *bool `json:"present" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id and present are required"})
		return
	}
	ctrl, ok := s.callController(c)
	if !ok {
		return
	}
	row, err := ctrl.MarkPresence(c.Request.Context(), req.StudentID, *req.Present)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"row": row, "summary": ctrl.Summary()})
}

func (s *server) closeTrip(c *gin.Context) {
	ctrl, ok := s.callController(c)
	if !ok {
		return
	}
	msg, err := ctrl.CloseTrip(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "trips": ctrl.OpenTrips()})
}

func callBody(ctrl *call.Controller) gin.H {
	body := gin.H{
		"state":   ctrl.State().String(),
		"rows":    ctrl.Rows(),
		"summary": ctrl.Summary(),
	}
	if trip, ok := ctrl.Selected(); ok {
		body["trip"] = trip
	}
	return body
}

func findTrip(trips []model.Trip, id int64) (model.Trip, bool) {
	i := slices.IndexFunc(trips, func(t model.Trip) bool { return t.ID == id })
	if i < 0 {
		return model.Trip{}, false
	}
	return trips[i], true
}
