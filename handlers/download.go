package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripplanner/services"
)

// Download renders the itinerary, with its notes, as a PDF attachment.
func (h *Handler) Download(c *gin.Context) {
	ctx := c.Request.Context()
	it, err := h.store.GetItinerary(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}
	trip, err := h.store.GetTrip(ctx, it.TripID)
	if err != nil {
		h.fail(c, err, "trip")
		return
	}
	notes, err := h.store.ListNotes(ctx, it.ID)
	if err != nil {
		h.fail(c, err, "notes")
		return
	}

	byDay := make(map[int][]string)
	for _, n := range notes {
		byDay[n.DayNumber] = append(byDay[n.DayNumber], n.Content)
	}

	pdfBytes, err := services.GeneratePDFBytes(services.PDFData{
		TravelerName: c.Query("traveler_name"),
		Trip:         trip.TripRequest,
		Itinerary:    it.Data,
		Cost:         it.CostBreakdown,
		Notes:        byDay,
	})
	if err != nil {
		h.log.Error("PDF generation failed", "itinerary_id", it.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
		return
	}

	h.log.Info("PDF generated", "itinerary_id", it.ID, "bytes", len(pdfBytes))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=itinerary-v%d.pdf", it.VersionNumber))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
