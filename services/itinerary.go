package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// PlaceholderImage is used whenever no destination image can be resolved.
const PlaceholderImage = "https://images.pexels.com/photos/1008155/pexels-photo-1008155.jpeg?auto=compress&cs=tinysrgb&w=800&h=600&fit=crop"

// ─── Collaborators ────────────────────────────────────────────────────────────

// Provider is the credentialed flight/hotel/location service.
type Provider interface {
	LookupFlight(ctx context.Context, originCode, destCode string, date time.Time, travelers int) (FlightLeg, bool)
	LookupHotel(ctx context.Context, city string, checkIn, checkOut time.Time) (HotelStay, bool)
	ResolveLocationCode(ctx context.Context, city string) (string, bool)
}

// ContentSearcher is the web-search fallback for hotels and activities.
type ContentSearcher interface {
	ActivitySearcher
	SearchHotelText(ctx context.Context, city string, purpose Purpose) (HotelHint, error)
}

// Fallback produces synthetic data that never fails.
type Fallback interface {
	ActivityCatalog
	FallbackFlight(origin, destination string, date time.Time) FlightLeg
	FallbackHotel(city string, checkIn, checkOut time.Time, purpose Purpose) HotelStay
}

type StockImageFinder interface {
	StockImage(ctx context.Context, keyword string) (string, error)
}

type ImagePersonalizer interface {
	Personalize(ctx context.Context, destination string, travelerImages []string) (string, ImageMeta, error)
}

// ─── Fallback chain ───────────────────────────────────────────────────────────

type source[T any] func(ctx context.Context) (T, bool)

// firstOf tries each source in order and returns the first success.
func firstOf[T any](ctx context.Context, sources ...source[T]) (T, bool) {
	for _, s := range sources {
		if s == nil {
			continue
		}
		if v, ok := s(ctx); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// ─── Day budgeting ────────────────────────────────────────────────────────────

// SplitDays divides totalDays across n destinations. Each gets
// totalDays/n days and the remainder goes one day each to the earliest legs.
func SplitDays(totalDays, n int) []int {
	if n <= 0 {
		return nil
	}
	base, extra := totalDays/n, totalDays%n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < extra {
			out[i]++
		}
	}
	return out
}

// LegPlan is the precomputed date window for one destination.
type LegPlan struct {
	Index    int
	City     string
	From     string
	Start    time.Time
	Days     int
	FirstDay int
	Last     bool
}

func (l LegPlan) End() time.Time { return l.Start.AddDate(0, 0, l.Days) }

// PlanLegs computes every leg's window before any lookup is issued.
func PlanLegs(req TripRequest) []LegPlan {
	split := SplitDays(req.TotalDays(), len(req.Destinations))
	legs := make([]LegPlan, len(req.Destinations))

	cursor := truncateDay(req.StartDate)
	day := 1
	for i, city := range req.Destinations {
		from := req.OriginCity
		if i > 0 {
			from = req.Destinations[i-1]
		}
		legs[i] = LegPlan{
			Index:    i,
			City:     city,
			From:     from,
			Start:    cursor,
			Days:     split[i],
			FirstDay: day,
			Last:     i == len(req.Destinations)-1,
		}
		cursor = cursor.AddDate(0, 0, split[i])
		day += split[i]
	}
	return legs
}

// ─── Assembler ────────────────────────────────────────────────────────────────

type AssemblerDeps struct {
	Provider     Provider
	Search       ContentSearcher
	Fallback     Fallback
	Stock        StockImageFinder
	Personalizer ImagePersonalizer
	Logger       *slog.Logger
	// Concurrent fans per-leg lookups out in parallel. Output is identical.
	Concurrent bool
}

// Assembler turns a trip request into a complete itinerary.
type Assembler struct {
	provider     Provider
	search       ContentSearcher
	fallback     Fallback
	allocator    *Allocator
	stock        StockImageFinder
	personalizer ImagePersonalizer
	log          *slog.Logger
	concurrent   bool
}

func NewAssembler(deps AssemblerDeps) *Assembler {
	if deps.Fallback == nil {
		deps.Fallback = NewGenerator(nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Assembler{
		provider:     deps.Provider,
		search:       deps.Search,
		fallback:     deps.Fallback,
		allocator:    NewAllocator(deps.Search, deps.Fallback, deps.Logger),
		stock:        deps.Stock,
		personalizer: deps.Personalizer,
		log:          deps.Logger.With("component", "assembler"),
		concurrent:   deps.Concurrent,
	}
}

type legResult struct {
	inbound    FlightLeg
	hasInbound bool
	hotel      HotelStay
	hasHotel   bool
	days       []DayPlan
	ret        FlightLeg
	hasReturn  bool
}

// GenerateItinerary validates req and assembles flights, hotels and day plans
// for every leg. Provider and search failures are absorbed by the fallback
// chain, so the only error is a validation error.
func (a *Assembler) GenerateItinerary(ctx context.Context, req TripRequest) (ItineraryData, error) {
	if err := req.Validate(); err != nil {
		return ItineraryData{}, err
	}

	legs := PlanLegs(req)
	results := make([]legResult, len(legs))

	if a.concurrent && len(legs) > 1 {
		var g errgroup.Group
		g.SetLimit(4)
		for i, leg := range legs {
			g.Go(func() error {
				results[i] = a.runLeg(ctx, req, leg)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, leg := range legs {
			results[i] = a.runLeg(ctx, req, leg)
		}
	}

	data := ItineraryData{
		Flights: []FlightLeg{},
		Hotels:  []HotelStay{},
		Days:    make([]DayPlan, 0, req.TotalDays()),
	}
	for _, r := range results {
		if r.hasInbound {
			data.Flights = append(data.Flights, r.inbound)
		}
		if r.hasHotel {
			data.Hotels = append(data.Hotels, r.hotel)
		}
		data.Days = append(data.Days, r.days...)
		if r.hasReturn {
			data.Flights = append(data.Flights, r.ret)
		}
	}

	data.DestinationImage, data.ImagePersonalized, data.ImageMeta = a.resolveImage(ctx, req)

	a.log.Info("itinerary generated",
		"destinations", len(req.Destinations),
		"days", len(data.Days),
		"flights", len(data.Flights),
		"hotels", len(data.Hotels))
	return data, nil
}

func (a *Assembler) runLeg(ctx context.Context, req TripRequest, leg LegPlan) legResult {
	var r legResult

	r.inbound, r.hasInbound = a.flight(ctx, leg.From, leg.City, leg.Start, req.Travelers)

	// A leg squeezed to zero days is flown through without a stay.
	if leg.Days > 0 {
		r.hotel, r.hasHotel = a.hotel(ctx, leg.City, leg.Start, leg.End(), req.Purpose)

		target := leg.Days * req.Purpose.ActivitiesPerDay()
		acts := a.allocator.Allocate(ctx, leg.City, req.Purpose, req.TravelerType,
			mandatoryFor(req.MandatoryActivities, leg.City), target)

		r.days = make([]DayPlan, leg.Days)
		for d := range r.days {
			r.days[d] = DayPlan{
				Day:        leg.FirstDay + d,
				Date:       formatDate(leg.Start.AddDate(0, 0, d)),
				City:       leg.City,
				Activities: []Activity{},
			}
		}
		for i, act := range acts {
			d := i % leg.Days
			r.days[d].Activities = append(r.days[d].Activities, act)
		}
	}

	if leg.Last {
		r.ret, r.hasReturn = a.flight(ctx, leg.City, req.OriginCity, truncateDay(req.EndDate), req.Travelers)
	}
	return r
}

func (a *Assembler) flight(ctx context.Context, from, to string, date time.Time, travelers int) (FlightLeg, bool) {
	var fromProvider source[FlightLeg]
	if a.provider != nil {
		fromProvider = func(ctx context.Context) (FlightLeg, bool) {
			leg, ok := a.provider.LookupFlight(ctx, a.locationCode(ctx, from), a.locationCode(ctx, to), date, travelers)
			if !ok {
				return FlightLeg{}, false
			}
			leg.From, leg.To = from, to
			return leg, true
		}
	}
	return firstOf(ctx,
		fromProvider,
		func(context.Context) (FlightLeg, bool) {
			return a.fallback.FallbackFlight(from, to, date), true
		},
	)
}

func (a *Assembler) hotel(ctx context.Context, city string, checkIn, checkOut time.Time, purpose Purpose) (HotelStay, bool) {
	var fromProvider, fromSearch source[HotelStay]
	if a.provider != nil {
		fromProvider = func(ctx context.Context) (HotelStay, bool) {
			return a.provider.LookupHotel(ctx, city, checkIn, checkOut)
		}
	}
	if a.search != nil {
		fromSearch = func(ctx context.Context) (HotelStay, bool) {
			hint, err := a.search.SearchHotelText(ctx, city, purpose)
			if err != nil {
				a.log.Info("hotel text search gave nothing", "city", city, "error", err)
				return HotelStay{}, false
			}
			nights := max(1, daysBetween(checkIn, checkOut))
			return HotelStay{
				City:          city,
				Name:          hint.Name,
				CheckInDate:   formatDate(checkIn),
				CheckOutDate:  formatDate(checkOut),
				PricePerNight: hint.Price,
				Nights:        nights,
				TotalPrice:    hint.Price * nights,
				Source:        SourceSearch,
			}, true
		}
	}
	return firstOf(ctx,
		fromProvider,
		fromSearch,
		func(context.Context) (HotelStay, bool) {
			return a.fallback.FallbackHotel(city, checkIn, checkOut, purpose), true
		},
	)
}

// locationCode resolves city through the provider, falling back to the first
// three letters of the name.
func (a *Assembler) locationCode(ctx context.Context, city string) string {
	if code, ok := a.provider.ResolveLocationCode(ctx, city); ok {
		return code
	}
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(city), " ", ""))
	if len(name) > 3 {
		name = name[:3]
	}
	return name
}

// resolveImage never fails: personalized first when traveler images exist,
// then stock, then the placeholder.
func (a *Assembler) resolveImage(ctx context.Context, req TripRequest) (string, bool, *ImageMeta) {
	dest := req.Destinations[0]

	if len(req.TravelerImages) > 0 && a.personalizer != nil {
		url, meta, err := a.personalizer.Personalize(ctx, dest, req.TravelerImages)
		if err == nil && url != "" {
			return url, true, &meta
		}
		a.log.Warn("personalized image failed, using stock image", "destination", dest, "error", err)
	}

	if a.stock != nil {
		url, err := a.stock.StockImage(ctx, dest+" travel landmark")
		if err == nil && url != "" {
			return url, false, nil
		}
		a.log.Warn("stock image lookup failed", "destination", dest, "error", err)
	}
	return PlaceholderImage, false, nil
}

func mandatoryFor(m map[string][]string, city string) []string {
	if list, ok := m[city]; ok {
		return list
	}
	return nil
}
