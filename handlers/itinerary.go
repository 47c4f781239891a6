package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tripplanner/database"
	"tripplanner/services"
)

type NoteInput struct {
	DayNumber int    `json:"day_number" binding:"required"`
	Content   string `json:"note_content" binding:"required"`
}

type CompareResponse struct {
	A          *database.Itinerary `json:"a"`
	B          *database.Itinerary `json:"b"`
	Comparison services.Comparison `json:"comparison"`
}

func (h *Handler) GetItinerary(c *gin.Context) {
	it, err := h.store.GetItinerary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}
	c.JSON(http.StatusOK, it)
}

// CompareItineraries prices two versions side by side using the traveler
// count of the first one's trip.
func (h *Handler) CompareItineraries(c *gin.Context) {
	idA, idB := c.Query("a"), c.Query("b")
	if idA == "" || idB == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both a and b itinerary IDs are required"})
		return
	}

	ctx := c.Request.Context()
	a, err := h.store.GetItinerary(ctx, idA)
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}
	b, err := h.store.GetItinerary(ctx, idB)
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}
	trip, err := h.store.GetTrip(ctx, a.TripID)
	if err != nil {
		h.fail(c, err, "trip")
		return
	}

	c.JSON(http.StatusOK, CompareResponse{
		A:          a,
		B:          b,
		Comparison: services.CompareItineraries(a.Data, b.Data, trip.Travelers),
	})
}

func (h *Handler) SelectItinerary(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.SelectItinerary(c.Request.Context(), id); err != nil {
		h.fail(c, err, "itinerary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_selected": true})
}

// ─── Notes ────────────────────────────────────────────────────────────────────

func (h *Handler) ListNotes(c *gin.Context) {
	ctx := c.Request.Context()
	it, err := h.store.GetItinerary(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}
	notes, err := h.store.ListNotes(ctx, it.ID)
	if err != nil {
		h.fail(c, err, "notes")
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) AddNote(c *gin.Context) {
	var in NoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	it, err := h.store.GetItinerary(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "note_content must not be blank"})
		return
	}
	if in.DayNumber < 1 || in.DayNumber > len(it.Data.Days) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "day_number is outside the itinerary"})
		return
	}

	note := &database.Note{ItineraryID: it.ID, DayNumber: in.DayNumber, Content: content}
	if err := h.store.AddNote(ctx, note); err != nil {
		h.log.Error("failed to save note", "itinerary_id", it.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save note"})
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *Handler) DeleteNote(c *gin.Context) {
	if err := h.store.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "note")
		return
	}
	c.Status(http.StatusNoContent)
}
