package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/roster"
)

type passengerView struct {
	roster.Passenger
	Presente *bool `json:"presente"`
}

func (s *server) rosterBody(store *roster.Store) gin.H {
	passengers := make([]passengerView, 0)
	for e := range store.WithPresence() {
		passengers = append(passengers, passengerView{Passenger: e.Passenger, Presente: e.Mark.Presente()})
	}
	return gin.H{"passengers": passengers, "tally": store.Tally()}
}

func (s *server) listRoster(c *gin.Context) {
	c.JSON(http.StatusOK, s.rosterBody(workspaceOf(c).Roster))
}

func (s *server) addPassenger(c *gin.Context) {
	var req struct {
		Name        string `json:"nome" binding:"required"`
		Affiliation string `json:"faculdade"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nome is required"})
		return
	}
	p := workspaceOf(c).Roster.Add(strings.TrimSpace(req.Name), strings.TrimSpace(req.Affiliation))
	c.JSON(http.StatusCreated, passengerView{Passenger: p})
}

func (s *server) removePassenger(c *gin.Context) {
	workspaceOf(c).Roster.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *server) setPresence(c *gin.Context) {
	var req struct {
		Present *bool `json:"presente" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "presente must be true or false"})
		return
	}
	store := workspaceOf(c).Roster
	id := c.Param("id")
	if !store.Has(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "passenger not found"})
		return
	}
	store.SetPresence(id, *req.Present)
	c.JSON(http.StatusOK, s.rosterBody(store))
}

func (s *server) resetRoster(c *gin.Context) {
	store := workspaceOf(c).Roster
	store.ResetAll()
	c.JSON(http.StatusOK, s.rosterBody(store))
}

func (s *server) exportList(c *gin.Context) {
	s.export(c, roster.ListFilename, (*roster.Store).WriteList)
}

func (s *server) exportCall(c *gin.Context) {
	s.export(c, roster.CallFilename, (*roster.Store).WriteCall)
}

func (s *server) export(c *gin.Context, filename func(time.Time) string, write func(*roster.Store, io.Writer, time.Time) error) {
	day := time.Now().In(s.deps.Location)
	if v := c.Query("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, s.deps.Location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}
	var buf bytes.Buffer
	if err := write(workspaceOf(c).Roster, &buf, day); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename(day)+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}
