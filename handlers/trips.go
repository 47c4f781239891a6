package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tripplanner/database"
	"tripplanner/services"
)

type TripInput struct {
	Destinations        []string            `json:"destinations"`
	StartDate           string              `json:"start_date"`
	EndDate             string              `json:"end_date"`
	Purpose             string              `json:"purpose"`
	TravelerType        string              `json:"traveler_type"`
	Travelers           int                 `json:"number_of_travelers"`
	OriginCity          string              `json:"origin_city"`
	MandatoryActivities map[string][]string `json:"mandatory_activities"`
	TravelerImages      []string            `json:"traveler_images"`
}

type TripResponse struct {
	Trip        *database.Trip       `json:"trip"`
	Itinerary   *database.Itinerary  `json:"itinerary,omitempty"`
	Itineraries []database.Itinerary `json:"itineraries,omitempty"`
}

// toRequest converts the wire input. Only unparseable dates are rejected here;
// everything else is left to TripRequest.Validate.
func (in TripInput) toRequest() (services.TripRequest, error) {
	req := services.TripRequest{
		Destinations:        make([]string, 0, len(in.Destinations)),
		Purpose:             services.Purpose(strings.TrimSpace(in.Purpose)),
		TravelerType:        services.TravelerType(strings.TrimSpace(in.TravelerType)),
		Travelers:           in.Travelers,
		OriginCity:          strings.TrimSpace(in.OriginCity),
		MandatoryActivities: in.MandatoryActivities,
		TravelerImages:      in.TravelerImages,
	}
	for _, d := range in.Destinations {
		req.Destinations = append(req.Destinations, strings.TrimSpace(d))
	}
	if req.Travelers == 0 {
		req.Travelers = 1
	}

	var err error
	if in.StartDate != "" {
		if req.StartDate, err = time.Parse(services.DateLayout, in.StartDate); err != nil {
			return req, errBadDate("start_date")
		}
	}
	if in.EndDate != "" {
		if req.EndDate, err = time.Parse(services.DateLayout, in.EndDate); err != nil {
			return req, errBadDate("end_date")
		}
	}
	return req, nil
}

type errBadDate string

func (e errBadDate) Error() string {
	return "Invalid " + string(e) + " format. Use YYYY-MM-DD"
}

// CreateTrip validates the request, generates the first itinerary version and
// stores both.
func (h *Handler) CreateTrip(c *gin.Context) {
	var in TripInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	req, err := in.toRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(c, err, "trip")
		return
	}

	ctx := c.Request.Context()
	data, err := h.gen.GenerateItinerary(ctx, req)
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}

	trip := &database.Trip{TripRequest: req}
	if err := h.store.CreateTrip(ctx, trip); err != nil {
		h.log.Error("failed to save trip", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save trip"})
		return
	}

	it, err := h.saveVersion(c, trip, data)
	if err != nil {
		return
	}
	c.JSON(http.StatusCreated, TripResponse{Trip: trip, Itinerary: it})
}

func (h *Handler) GetTrip(c *gin.Context) {
	ctx := c.Request.Context()
	trip, err := h.store.GetTrip(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "trip")
		return
	}
	its, err := h.store.ListItineraries(ctx, trip.ID)
	if err != nil {
		h.fail(c, err, "itineraries")
		return
	}
	c.JSON(http.StatusOK, TripResponse{Trip: trip, Itineraries: its})
}

// RegenerateItinerary builds another version for an existing trip.
func (h *Handler) RegenerateItinerary(c *gin.Context) {
	ctx := c.Request.Context()
	trip, err := h.store.GetTrip(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "trip")
		return
	}

	data, err := h.gen.GenerateItinerary(ctx, trip.TripRequest)
	if err != nil {
		h.fail(c, err, "itinerary")
		return
	}

	it, err := h.saveVersion(c, trip, data)
	if err != nil {
		return
	}
	c.JSON(http.StatusCreated, it)
}

// saveVersion prices data and stores it as the trip's next itinerary version.
// On failure it has already written the error response.
func (h *Handler) saveVersion(c *gin.Context, trip *database.Trip, data services.ItineraryData) (*database.Itinerary, error) {
	cost := services.CalculateTotalCost(data.Flights, data.Hotels, trip.Travelers)
	it := &database.Itinerary{
		TripID:        trip.ID,
		Data:          data,
		TotalCost:     cost.Total,
		CostBreakdown: cost,
	}
	if err := h.store.SaveItinerary(c.Request.Context(), it); err != nil {
		h.log.Error("failed to save itinerary", "trip_id", trip.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save itinerary"})
		return nil, err
	}

	h.log.Info("itinerary saved",
		"trip_id", trip.ID,
		"itinerary_id", it.ID,
		"version", it.VersionNumber,
		"total_cost", it.TotalCost)
	return it, nil
}
