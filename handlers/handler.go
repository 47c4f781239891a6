package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripplanner/database"
	"tripplanner/services"
)

// Store is the persistence the handlers need. *database.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	CreateTrip(ctx context.Context, t *database.Trip) error
	GetTrip(ctx context.Context, id string) (*database.Trip, error)

	SaveItinerary(ctx context.Context, it *database.Itinerary) error
	GetItinerary(ctx context.Context, id string) (*database.Itinerary, error)
	ListItineraries(ctx context.Context, tripID string) ([]database.Itinerary, error)
	SelectItinerary(ctx context.Context, id string) error

	AddNote(ctx context.Context, n *database.Note) error
	ListNotes(ctx context.Context, itineraryID string) ([]database.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// Generator builds itineraries. *services.Assembler satisfies it.
type Generator interface {
	GenerateItinerary(ctx context.Context, req services.TripRequest) (services.ItineraryData, error)
}

type Handler struct {
	store Store
	gen   Generator
	log   *slog.Logger
}

func New(store Store, gen Generator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, gen: gen, log: logger.With("component", "handlers")}
}

// Register mounts every API route under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/trips", h.CreateTrip)
		api.GET("/trips/:id", h.GetTrip)
		api.POST("/trips/:id/itineraries", h.RegenerateItinerary)

		api.GET("/itineraries/compare", h.CompareItineraries)
		api.GET("/itineraries/:id", h.GetItinerary)
		api.PUT("/itineraries/:id/select", h.SelectItinerary)
		api.GET("/itineraries/:id/notes", h.ListNotes)
		api.POST("/itineraries/:id/notes", h.AddNote)
		api.GET("/itineraries/:id/pdf", h.Download)

		api.DELETE("/notes/:id", h.DeleteNote)
	}
}

func (h *Handler) Health(c *gin.Context) {
	dbStatus := "ok"
	if h.store == nil {
		dbStatus = "not initialized"
	} else if err := h.store.Ping(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "Trip Planner API",
		"database": dbStatus,
	})
}

// fail maps err onto a status code and writes the JSON error body.
func (h *Handler) fail(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	default:
		h.log.Error("request failed", "path", c.FullPath(), "what", what, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load " + what})
	}
}

// RequestLogger writes one structured line per request. An incoming
// X-Request-ID is reused, otherwise a new one is generated and echoed back.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Header("X-Request-ID", reqID)
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", reqID)
	}
}
