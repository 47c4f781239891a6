package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in day plans.
const DateLayout = "2006-01-02"

var (
	// ErrValidation marks a malformed trip request. Raised before any I/O.
	ErrValidation = errors.New("validation error")
	// ErrAuth is returned when the provider rejects a credential request.
	ErrAuth = errors.New("provider authentication failed")
	// ErrNoResult signals that a lookup produced nothing usable.
	ErrNoResult = errors.New("no result")
)

// ─── Enums ────────────────────────────────────────────────────────────────────

type Purpose string

const (
	PurposeBusiness   Purpose = "Business"
	PurposeVacation   Purpose = "Vacation"
	PurposeStaycation Purpose = "Staycation"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeBusiness, PurposeVacation, PurposeStaycation:
		return true
	}
	return false
}

// ActivitiesPerDay is the ideal number of activities scheduled per day.
func (p Purpose) ActivitiesPerDay() int {
	switch p {
	case PurposeBusiness:
		return 3
	case PurposeStaycation:
		return 4
	default:
		return 6
	}
}

type TravelerType string

const (
	TravelerSolo            TravelerType = "Solo"
	TravelerFamily          TravelerType = "Friends and Family"
	TravelerBusiness        TravelerType = "Business Travelers"
	TravelerContentCreators TravelerType = "Content Creators"
)

func (t TravelerType) Valid() bool {
	switch t {
	case "", TravelerSolo, TravelerFamily, TravelerBusiness, TravelerContentCreators:
		return true
	}
	return false
}

// Source records where a flight or hotel came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceSearch   Source = "search"
	SourceFallback Source = "fallback"
)

// ─── Trip request ─────────────────────────────────────────────────────────────

type TripRequest struct {
	Destinations        []string            `json:"destinations"`
	StartDate           time.Time           `json:"start_date"`
	EndDate             time.Time           `json:"end_date"`
	Purpose             Purpose             `json:"purpose"`
	TravelerType        TravelerType        `json:"traveler_type"`
	Travelers           int                 `json:"number_of_travelers"`
	OriginCity          string              `json:"origin_city"`
	MandatoryActivities map[string][]string `json:"mandatory_activities,omitempty"`
	TravelerImages      []string            `json:"traveler_images,omitempty"`
}

// Validate checks the request invariants. Every failure wraps ErrValidation.
func (r TripRequest) Validate() error {
	if len(r.Destinations) == 0 {
		return fmt.Errorf("%w: at least one destination is required", ErrValidation)
	}
	known := make(map[string]bool, len(r.Destinations))
	for i, d := range r.Destinations {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("%w: destination %d is blank", ErrValidation, i+1)
		}
		known[d] = true
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if !r.EndDate.After(r.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrValidation)
	}
	if r.Travelers < 1 {
		return fmt.Errorf("%w: number of travelers must be at least 1", ErrValidation)
	}
	if !r.Purpose.Valid() {
		return fmt.Errorf("%w: unknown purpose %q", ErrValidation, r.Purpose)
	}
	if !r.TravelerType.Valid() {
		return fmt.Errorf("%w: unknown traveler type %q", ErrValidation, r.TravelerType)
	}
	if strings.TrimSpace(r.OriginCity) == "" {
		return fmt.Errorf("%w: origin city is required", ErrValidation)
	}
	for city := range r.MandatoryActivities {
		if !known[city] {
			return fmt.Errorf("%w: mandatory activities given for %q which is not a destination", ErrValidation, city)
		}
	}
	return nil
}

// TotalDays is the number of whole days between start and end, at least 1.
func (r TripRequest) TotalDays() int {
	return max(1, daysBetween(r.StartDate, r.EndDate))
}

// ─── Itinerary ────────────────────────────────────────────────────────────────

type FlightLeg struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Date           string `json:"date"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	Airline        string `json:"airline"`
	FlightNumber   string `json:"flight_number"`
	PricePerPerson int    `json:"price_per_person"`
	Duration       string `json:"duration"`
	Source         Source `json:"source,omitempty"`
}

type HotelStay struct {
	City          string `json:"city"`
	Name          string `json:"name"`
	CheckInDate   string `json:"check_in_date"`
	CheckOutDate  string `json:"check_out_date"`
	PricePerNight int    `json:"price_per_night"`
	Nights        int    `json:"nights"`
	TotalPrice    int    `json:"total_price"`
	Source        Source `json:"source,omitempty"`
}

type Activity struct {
	Time         string `json:"time"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Duration     string `json:"duration"`
	OpeningHours string `json:"opening_hours,omitempty"`
	ClosingHours string `json:"closing_hours,omitempty"`
}

type DayPlan struct {
	Day        int        `json:"day"`
	Date       string     `json:"date"`
	City       string     `json:"city"`
	Activities []Activity `json:"activities"`
}

// ImageMeta describes how a personalized destination image was produced.
type ImageMeta struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	ReferenceCount int    `json:"reference_count"`
}

type ItineraryData struct {
	DestinationImage  string      `json:"destination_image"`
	ImagePersonalized bool        `json:"image_personalized"`
	ImageMeta         *ImageMeta  `json:"image_meta,omitempty"`
	Flights           []FlightLeg `json:"flights"`
	Hotels            []HotelStay `json:"hotels"`
	Days              []DayPlan   `json:"days"`
}

type CostBreakdown struct {
	FlightsTotal    int `json:"flights_total"`
	HotelsTotal     int `json:"hotels_total"`
	ActivitiesTotal int `json:"activities_total"`
	Total           int `json:"total"`
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b, ignoring the time of day.
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}
