package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/admin"
	"rollcall/internal/model"
)

func (s *server) overview(c *gin.Context) {
	c.JSON(http.StatusOK, admin.Load(c.Request.Context(), workspaceOf(c).Client))
}

// list, create, update and remove forward one admin call to the API with
// the caller's client.

func list[T any](c *gin.Context, fn func(context.Context) ([]T, error)) {
	items, err := fn(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

func create[In, Out any](c *gin.Context, fn func(context.Context, In) (Out, error)) {
	var in In
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	out, err := fn(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func update[In, Out any](c *gin.Context, fn func(context.Context, int64, In) (Out, error)) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in In
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	out, err := fn(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func remove(c *gin.Context, fn func(context.Context, int64) error) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) listBuses(c *gin.Context) {
	list(c, workspaceOf(c).Client.ListBuses)
}

func (s *server) createBus(c *gin.Context) {
	create(c, workspaceOf(c).Client.CreateBus)
}

func (s *server) updateBus(c *gin.Context) {
	update(c, workspaceOf(c).Client.UpdateBus)
}

func (s *server) deleteBus(c *gin.Context) {
	remove(c, workspaceOf(c).Client.DeleteBus)
}

func (s *server) listRoutes(c *gin.Context) {
	list(c, workspaceOf(c).Client.ListRoutes)
}

func (s *server) createRoute(c *gin.Context) {
	create(c, workspaceOf(c).Client.CreateRoute)
}

func (s *server) updateRoute(c *gin.Context) {
	update(c, workspaceOf(c).Client.UpdateRoute)
}

func (s *server) deleteRoute(c *gin.Context) {
	remove(c, workspaceOf(c).Client.DeleteRoute)
}

func (s *server) listUsers(c *gin.Context) {
	list(c, workspaceOf(c).Client.ListUsers)
}

func (s *server) createUser(c *gin.Context) {
	create(c, workspaceOf(c).Client.CreateUser)
}

func (s *server) updateUser(c *gin.Context) {
	update(c, workspaceOf(c).Client.UpdateUser)
}

func (s *server) deleteUser(c *gin.Context) {
	remove(c, workspaceOf(c).Client.DeleteUser)
}

func (s *server) listTravels(c *gin.Context) {
	list(c, workspaceOf(c).Client.ListTrips)
}

func (s *server) createTravel(c *gin.Context) {
	create(c, workspaceOf(c).Client.CreateTrip)
}

func (s *server) getBus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	bus, err := workspaceOf(c).Client.GetBus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

func (s *server) updateTravelStatus(c *gin.Context) {
	var req struct {
		Status model.TripStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	switch req.Status {
	case model.TripOpen, model.TripClosed, model.TripCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	trip, err := workspaceOf(c).Client.UpdateTripStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
