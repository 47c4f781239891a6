package services

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ─── Fallback generator ───────────────────────────────────────────────────────
//
// Produces plausible flights, hotels and activities when no provider or search
// result is available. Values are synthetic and labelled SourceFallback.

const (
	minFlightPrice = 150
	maxFlightPrice = 1200
)

var fallbackAirlines = []struct {
	name string
	code string
}{
	{"Emirates", "EK"},
	{"Qatar Airways", "QR"},
	{"Lufthansa", "LH"},
	{"Air France", "AF"},
	{"British Airways", "BA"},
	{"United Airlines", "UA"},
	{"Delta Air Lines", "DL"},
	{"Singapore Airlines", "SQ"},
	{"Turkish Airlines", "TK"},
}

var (
	hotelBrands     = []string{"Marriott", "Hilton", "Hyatt Regency", "InterContinental", "Radisson Blu", "Novotel", "Sheraton", "Holiday Inn"}
	hotelAdjectives = []string{"Grand", "Royal", "Central", "Plaza", "Boutique", "Park", "Riverside", "Heritage"}
)

type cityTier int

const (
	tierStandard cityTier = iota
	tierExpensive
	tierLuxury
)

var cityTiers = map[string]cityTier{
	"paris": tierLuxury, "london": tierLuxury, "new york": tierLuxury, "tokyo": tierLuxury,
	"dubai": tierLuxury, "singapore": tierLuxury, "zurich": tierLuxury, "geneva": tierLuxury,
	"hong kong": tierLuxury, "monaco": tierLuxury,

	"rome": tierExpensive, "barcelona": tierExpensive, "amsterdam": tierExpensive,
	"sydney": tierExpensive, "san francisco": tierExpensive, "los angeles": tierExpensive,
	"copenhagen": tierExpensive, "venice": tierExpensive, "milan": tierExpensive,
	"boston": tierExpensive, "seattle": tierExpensive, "miami": tierExpensive,
	"munich": tierExpensive, "vienna": tierExpensive, "stockholm": tierExpensive,
}

// priceBand is an inclusive nightly price range.
type priceBand struct{ Min, Max int }

var hotelBands = map[cityTier]map[bool]priceBand{
	tierLuxury:    {true: {250, 450}, false: {180, 350}},
	tierExpensive: {true: {180, 320}, false: {120, 250}},
	tierStandard:  {true: {120, 250}, false: {80, 180}},
}

// HotelPriceBand returns the nightly price range used for synthetic hotels in
// city. The range depends on the city tier and on whether the trip is Business.
func HotelPriceBand(city string, purpose Purpose) (lo, hi int) {
	tier := cityTiers[strings.ToLower(strings.TrimSpace(city))]
	b := hotelBands[tier][purpose == PurposeBusiness]
	return b.Min, b.Max
}

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a generator drawing from rng. A nil rng is seeded from
// the clock.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// FallbackFlight synthesizes a flight over a random "continental" distance of
// 3000–5000 units. Always succeeds.
func (g *Generator) FallbackFlight(origin, destination string, date time.Time) FlightLeg {
	distance := 3000 + g.float()*2000

	base := clampFloat(distance*0.15, minFlightPrice, maxFlightPrice)
	price := int(math.Round(base * (0.8 + g.float()*0.4)))
	price = min(max(price, minFlightPrice), maxFlightPrice)

	airline := fallbackAirlines[g.intn(len(fallbackAirlines))]

	hours := int(distance / 800)
	minutes := int(math.Mod(distance, 800) / 13.33)
	depHour := 6 + g.intn(15)
	dep := time.Date(date.Year(), date.Month(), date.Day(), depHour, 0, 0, 0, time.UTC)
	arr := dep.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)

	return FlightLeg{
		From:           origin,
		To:             destination,
		Date:           formatDate(date),
		DepartureTime:  dep.Format("15:04"),
		ArrivalTime:    arr.Format("15:04"),
		Airline:        airline.name,
		FlightNumber:   fmt.Sprintf("%s%d", airline.code, 100+g.intn(900)),
		PricePerPerson: price,
		Duration:       fmt.Sprintf("%dh %dm", hours, minutes),
		Source:         SourceFallback,
	}
}

// FallbackHotel synthesizes a hotel stay priced within the city's tier band.
// Always succeeds.
func (g *Generator) FallbackHotel(city string, checkIn, checkOut time.Time, purpose Purpose) HotelStay {
	nights := max(1, int(math.Ceil(checkOut.Sub(checkIn).Hours()/24)))

	lo, hi := HotelPriceBand(city, purpose)
	perNight := lo + g.intn(hi-lo+1)

	var name string
	if g.intn(2) == 0 {
		name = fmt.Sprintf("%s %s", city, hotelBrands[g.intn(len(hotelBrands))])
	} else {
		name = fmt.Sprintf("%s %s Hotel", city, hotelAdjectives[g.intn(len(hotelAdjectives))])
	}

	return HotelStay{
		City:          city,
		Name:          name,
		CheckInDate:   formatDate(checkIn),
		CheckOutDate:  formatDate(checkOut),
		PricePerNight: perNight,
		Nights:        nights,
		TotalPrice:    perNight * nights,
		Source:        SourceFallback,
	}
}

// ─── Curated activities ───────────────────────────────────────────────────────

var businessActivities = []Activity{
	{Time: "9:00 AM", Title: "%s Business District Tour", Description: "Explore the main business and financial area", Duration: "2 hours"},
	{Time: "11:00 AM", Title: "Co-working Space Visit", Description: "Network with local professionals", Duration: "3 hours"},
	{Time: "2:00 PM", Title: "Convention Center Walkthrough", Description: "Scout venues for meetings and events", Duration: "2 hours"},
	{Time: "4:00 PM", Title: "Chamber of Commerce Meetup", Description: "Meet local business leaders", Duration: "2 hours"},
}

var curatedActivities = map[string][]Activity{
	"paris": {
		{Time: "9:00 AM", Title: "Eiffel Tower", Description: "Visit the iconic landmark", Duration: "2-3 hours"},
		{Time: "12:00 PM", Title: "Louvre Museum", Description: "Explore world-class art", Duration: "3-4 hours"},
		{Time: "4:00 PM", Title: "Seine River Cruise", Description: "Relaxing boat tour", Duration: "1-2 hours"},
		{Time: "10:00 AM", Title: "Montmartre & Sacré-Cœur", Description: "Artists' hill with city views", Duration: "2-3 hours"},
		{Time: "2:00 PM", Title: "Musée d'Orsay", Description: "Impressionist masterpieces", Duration: "2-3 hours"},
		{Time: "6:00 PM", Title: "Champs-Élysées Stroll", Description: "Evening walk to the Arc de Triomphe", Duration: "1-2 hours"},
	},
	"rome": {
		{Time: "9:00 AM", Title: "Colosseum", Description: "Ancient Roman amphitheater", Duration: "2-3 hours"},
		{Time: "12:00 PM", Title: "Vatican Museums", Description: "Sistine Chapel visit", Duration: "3-4 hours"},
		{Time: "4:00 PM", Title: "Trevi Fountain", Description: "Famous baroque fountain", Duration: "1 hour"},
		{Time: "10:00 AM", Title: "Roman Forum", Description: "Heart of the ancient city", Duration: "2 hours"},
		{Time: "2:00 PM", Title: "Pantheon", Description: "Best preserved Roman temple", Duration: "1 hour"},
		{Time: "6:00 PM", Title: "Trastevere Walk", Description: "Cobbled streets and piazzas", Duration: "2 hours"},
	},
	"london": {
		{Time: "9:00 AM", Title: "Tower of London", Description: "Historic castle", Duration: "2-3 hours"},
		{Time: "12:00 PM", Title: "British Museum", Description: "World history exhibits", Duration: "3 hours"},
		{Time: "4:00 PM", Title: "London Eye", Description: "Observation wheel ride", Duration: "1 hour"},
		{Time: "10:00 AM", Title: "Westminster Abbey", Description: "Gothic abbey and coronation church", Duration: "2 hours"},
		{Time: "2:00 PM", Title: "Tate Modern", Description: "Modern and contemporary art", Duration: "2 hours"},
		{Time: "6:00 PM", Title: "Covent Garden", Description: "Street performers and shops", Duration: "2 hours"},
	},
	"tokyo": {
		{Time: "9:00 AM", Title: "Senso-ji Temple", Description: "Ancient Buddhist temple", Duration: "2 hours"},
		{Time: "12:00 PM", Title: "Tokyo Skytree", Description: "Panoramic city views", Duration: "2 hours"},
		{Time: "4:00 PM", Title: "Shibuya Crossing", Description: "Iconic intersection", Duration: "1 hour"},
		{Time: "10:00 AM", Title: "Meiji Shrine", Description: "Forested Shinto shrine", Duration: "1-2 hours"},
		{Time: "2:00 PM", Title: "Tsukiji Outer Market", Description: "Street food and fresh seafood", Duration: "2 hours"},
		{Time: "6:00 PM", Title: "Shinjuku Omoide Yokocho", Description: "Lantern-lit alley bars", Duration: "2 hours"},
	},
	"new york": {
		{Time: "9:00 AM", Title: "Statue of Liberty", Description: "Ferry to Liberty Island", Duration: "3 hours"},
		{Time: "12:00 PM", Title: "Central Park", Description: "Walk through the city's green heart", Duration: "2 hours"},
		{Time: "4:00 PM", Title: "Metropolitan Museum of Art", Description: "Encyclopedic art collection", Duration: "3 hours"},
		{Time: "10:00 AM", Title: "Brooklyn Bridge", Description: "Walk across to DUMBO", Duration: "1-2 hours"},
		{Time: "2:00 PM", Title: "High Line", Description: "Elevated park on old rail tracks", Duration: "1-2 hours"},
		{Time: "7:00 PM", Title: "Times Square", Description: "Lights and Broadway buzz", Duration: "1 hour"},
	},
}

// DefaultActivities returns the curated activity list for city and purpose.
// Business trips get the same four entries everywhere; unknown cities get a
// generic eight-entry template.
func (g *Generator) DefaultActivities(city string, purpose Purpose) []Activity {
	if purpose == PurposeBusiness {
		out := make([]Activity, len(businessActivities))
		for i, a := range businessActivities {
			if strings.Contains(a.Title, "%s") {
				a.Title = fmt.Sprintf(a.Title, city)
			}
			out[i] = a
		}
		return out
	}

	if list, ok := curatedActivities[strings.ToLower(strings.TrimSpace(city))]; ok {
		return append([]Activity(nil), list...)
	}

	return []Activity{
		{Time: "9:00 AM", Title: city + " City Center", Description: "Explore the downtown area", Duration: "2 hours"},
		{Time: "11:00 AM", Title: city + " History Museum", Description: "Local history and culture", Duration: "2 hours"},
		{Time: "1:00 PM", Title: city + " Old Town Walk", Description: "Historic streets and architecture", Duration: "2 hours"},
		{Time: "3:00 PM", Title: "Local Market", Description: "Shopping and street food", Duration: "2 hours"},
		{Time: "4:30 PM", Title: city + " Botanical Garden", Description: "Gardens and green spaces", Duration: "1-2 hours"},
		{Time: "10:00 AM", Title: city + " Art Gallery", Description: "Works by regional artists", Duration: "2 hours"},
		{Time: "6:00 PM", Title: "Sunset Viewpoint", Description: "Best views over the city", Duration: "1 hour"},
		{Time: "8:00 PM", Title: city + " Nightlife District", Description: "Bars and live music", Duration: "2-3 hours"},
	}
}

// MealActivities returns up to five meal activities worded for the purpose.
func (g *Generator) MealActivities(city string, purpose Purpose) []Activity {
	switch purpose {
	case PurposeBusiness:
		return []Activity{
			{Time: "7:30 AM", Title: "Working Breakfast", Description: "Breakfast meeting near the business district in " + city, Duration: "1 hour"},
			{Time: "12:30 PM", Title: "Business Lunch", Description: "Lunch at a quiet restaurant suited to conversation", Duration: "1-2 hours"},
			{Time: "7:30 PM", Title: "Client Dinner", Description: "Dinner at one of " + city + "'s well-reviewed restaurants", Duration: "2 hours"},
			{Time: "3:30 PM", Title: "Coffee Meeting", Description: "Catch up over coffee between appointments", Duration: "45 minutes"},
		}
	case PurposeStaycation:
		return []Activity{
			{Time: "9:00 AM", Title: "Slow Brunch", Description: "Leisurely brunch at a neighbourhood spot", Duration: "1-2 hours"},
			{Time: "1:00 PM", Title: "Local Lunch Spot", Description: "Try somewhere new close to home in " + city, Duration: "1 hour"},
			{Time: "7:00 PM", Title: "Dinner Somewhere New", Description: "A restaurant you have always meant to try", Duration: "2 hours"},
			{Time: "3:30 PM", Title: "Café Break", Description: "Coffee and a pastry at an independent café", Duration: "45 minutes"},
			{Time: "9:00 PM", Title: "Dessert Stop", Description: "Gelato or a sweet treat to end the day", Duration: "30 minutes"},
		}
	default:
		return []Activity{
			{Time: "8:00 AM", Title: "Breakfast at a Local Café", Description: "Start the day like a local in " + city, Duration: "1 hour"},
			{Time: "12:30 PM", Title: "Traditional Lunch", Description: "Regional specialities at a popular restaurant", Duration: "1-2 hours"},
			{Time: "7:30 PM", Title: "Dinner with a View", Description: "Evening meal overlooking " + city, Duration: "2 hours"},
			{Time: "3:30 PM", Title: "Coffee & Pastry Break", Description: "Recharge at a well-known café", Duration: "45 minutes"},
			{Time: "9:30 PM", Title: "Dessert Tasting", Description: "Sample the city's favourite sweets", Duration: "45 minutes"},
		}
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
