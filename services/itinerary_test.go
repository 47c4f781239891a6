package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssembler(deps AssemblerDeps) *Assembler {
	if deps.Fallback == nil {
		deps.Fallback = NewGenerator(rand.New(rand.NewSource(99)))
	}
	deps.Logger = discardLogger()
	return NewAssembler(deps)
}

func tripRequest(t *testing.T, start, end string, dests ...string) TripRequest {
	return TripRequest{
		Destinations: dests,
		StartDate:    day(t, start),
		EndDate:      day(t, end),
		Purpose:      PurposeVacation,
		TravelerType: TravelerSolo,
		Travelers:    2,
		OriginCity:   "New York",
	}
}

func TestSplitDays(t *testing.T) {
	assert.Equal(t, []int{3}, SplitDays(3, 1))
	assert.Equal(t, []int{3, 2}, SplitDays(5, 2))
	assert.Equal(t, []int{3, 2, 2}, SplitDays(7, 3))
	assert.Equal(t, []int{1, 1, 0}, SplitDays(2, 3))
	assert.Nil(t, SplitDays(4, 0))
}

func TestPlanLegs(t *testing.T) {
	req := tripRequest(t, "2025-06-01", "2025-06-06", "Paris", "Rome")

	legs := PlanLegs(req)

	require.Len(t, legs, 2)
	assert.Equal(t, "New York", legs[0].From)
	assert.Equal(t, day(t, "2025-06-01"), legs[0].Start)
	assert.Equal(t, day(t, "2025-06-04"), legs[0].End())
	assert.Equal(t, 1, legs[0].FirstDay)
	assert.False(t, legs[0].Last)

	assert.Equal(t, "Paris", legs[1].From)
	assert.Equal(t, day(t, "2025-06-04"), legs[1].Start)
	assert.Equal(t, 2, legs[1].Days)
	assert.Equal(t, 4, legs[1].FirstDay)
	assert.True(t, legs[1].Last)
}

func TestGenerateItinerary_singleDestination(t *testing.T) {
	a := newTestAssembler(AssemblerDeps{})
	req := tripRequest(t, "2025-06-01", "2025-06-04", "Paris")

	it, err := a.GenerateItinerary(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, it.Days, 3)
	require.Len(t, it.Flights, 2)
	require.Len(t, it.Hotels, 1)

	assert.Equal(t, "New York", it.Flights[0].From)
	assert.Equal(t, "Paris", it.Flights[0].To)
	assert.Equal(t, "2025-06-01", it.Flights[0].Date)
	assert.Equal(t, "Paris", it.Flights[1].From)
	assert.Equal(t, "New York", it.Flights[1].To)
	assert.Equal(t, "2025-06-04", it.Flights[1].Date)

	h := it.Hotels[0]
	assert.Equal(t, 3, h.Nights)
	assert.Equal(t, "2025-06-01", h.CheckInDate)
	assert.Equal(t, "2025-06-04", h.CheckOutDate)
	assert.Equal(t, SourceFallback, h.Source)

	for i, d := range it.Days {
		assert.Equal(t, i+1, d.Day)
		assert.Equal(t, "Paris", d.City)
		assert.Equal(t, day(t, "2025-06-01").AddDate(0, 0, i).Format(DateLayout), d.Date)
		assert.LessOrEqual(t, len(d.Activities), PurposeVacation.ActivitiesPerDay())
		assert.NotEmpty(t, d.Activities)
	}
	// Six curated Paris entries plus five meals, dealt round-robin.
	assert.Equal(t, []int{4, 4, 3}, []int{len(it.Days[0].Activities), len(it.Days[1].Activities), len(it.Days[2].Activities)})

	assert.Equal(t, PlaceholderImage, it.DestinationImage)
	assert.False(t, it.ImagePersonalized)
	assert.Nil(t, it.ImageMeta)
}

func TestGenerateItinerary_twoDestinations(t *testing.T) {
	a := newTestAssembler(AssemblerDeps{})
	req := tripRequest(t, "2025-06-01", "2025-06-06", "Paris", "Rome")

	it, err := a.GenerateItinerary(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, it.Days, 5)
	require.Len(t, it.Flights, 3)
	require.Len(t, it.Hotels, 2)

	cities := make([]string, len(it.Days))
	for i, d := range it.Days {
		cities[i] = d.City
		assert.Equal(t, i+1, d.Day)
	}
	assert.Equal(t, []string{"Paris", "Paris", "Paris", "Rome", "Rome"}, cities)

	route := [][2]string{{"New York", "Paris"}, {"Paris", "Rome"}, {"Rome", "New York"}}
	dates := []string{"2025-06-01", "2025-06-04", "2025-06-06"}
	for i, f := range it.Flights {
		assert.Equal(t, route[i], [2]string{f.From, f.To})
		assert.Equal(t, dates[i], f.Date)
	}

	assert.Equal(t, 3, it.Hotels[0].Nights)
	assert.Equal(t, "2025-06-04", it.Hotels[1].CheckInDate)
	assert.Equal(t, "2025-06-06", it.Hotels[1].CheckOutDate)
	assert.Equal(t, 2, it.Hotels[1].Nights)
}

func TestGenerateItinerary_moreDestinationsThanDays(t *testing.T) {
	a := newTestAssembler(AssemblerDeps{})
	req := tripRequest(t, "2025-06-01", "2025-06-03", "Paris", "Rome", "Vienna")

	it, err := a.GenerateItinerary(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, it.Days, 2)
	assert.Len(t, it.Hotels, 2)
	require.Len(t, it.Flights, 4)
	assert.Equal(t, "Rome", it.Flights[2].From)
	assert.Equal(t, "Vienna", it.Flights[2].To)
	assert.Equal(t, "New York", it.Flights[3].To)
}

func TestGenerateItinerary_everyAdapterFailing(t *testing.T) {
	provider := &fakeProvider{}
	a := newTestAssembler(AssemblerDeps{
		Provider:     provider,
		Search:       &fakeSearch{hotel: func(string) (HotelHint, error) { return HotelHint{}, errUpstream }},
		Stock:        fakeStock{err: errUpstream},
		Personalizer: fakePersonalizer{err: errUpstream},
	})
	req := tripRequest(t, "2025-06-01", "2025-06-04", "Paris")
	req.TravelerImages = []string{"https://example.com/me.jpg"}

	it, err := a.GenerateItinerary(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, it.Days, 3)
	require.Len(t, it.Flights, 2)
	require.Len(t, it.Hotels, 1)
	for _, f := range it.Flights {
		assert.Equal(t, SourceFallback, f.Source)
	}
	assert.Equal(t, SourceFallback, it.Hotels[0].Source)
	assert.Equal(t, PlaceholderImage, it.DestinationImage)
	assert.False(t, it.ImagePersonalized)
	assert.Positive(t, provider.calls.Load())
}

func TestGenerateItinerary_providerResultsWin(t *testing.T) {
	var mu sync.Mutex
	var codes [][2]string
	provider := &fakeProvider{
		flight: func(origin, dest string, date time.Time, travelers int) (FlightLeg, bool) {
			mu.Lock()
			codes = append(codes, [2]string{origin, dest})
			mu.Unlock()
			return FlightLeg{From: origin, To: dest, Date: formatDate(date), Airline: "Air France", PricePerPerson: 640, Source: SourceProvider}, true
		},
		hotel: func(city string, in, out time.Time) (HotelStay, bool) {
			return HotelStay{City: city, Name: "Le Meurice", CheckInDate: formatDate(in), CheckOutDate: formatDate(out),
				PricePerNight: 300, Nights: 3, TotalPrice: 900, Source: SourceProvider}, true
		},
	}
	a := newTestAssembler(AssemblerDeps{Provider: provider})

	it, err := a.GenerateItinerary(context.Background(), tripRequest(t, "2025-06-01", "2025-06-04", "Paris"))

	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"NEW", "PAR"}, {"PAR", "NEW"}}, codes)
	assert.Equal(t, "New York", it.Flights[0].From)
	assert.Equal(t, "Paris", it.Flights[0].To)
	assert.Equal(t, SourceProvider, it.Flights[0].Source)
	assert.Equal(t, "Le Meurice", it.Hotels[0].Name)

	cost := CalculateTotalCost(it.Flights, it.Hotels, 2)
	assert.Equal(t, 640*2*2+900, cost.Total)
}

func TestGenerateItinerary_providerFareCountedOncePerTraveler(t *testing.T) {
	srv := newAmadeusServer(t, http.StatusOK, map[string]http.HandlerFunc{
		"/v2/shopping/flight-offers": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2", r.URL.Query().Get("adults"))
			fmt.Fprint(w, `{"data": [{"price": {"total": "1024.00"}, "itineraries": [{"duration": "PT8H",
				"segments": [{"departure": {"iataCode": "JFK", "at": "2025-06-01T18:00:00"},
				"arrival": {"iataCode": "CDG", "at": "2025-06-02T08:00:00"}, "carrierCode": "AF", "number": "7"}]}]}]}`)
		},
	})
	a := newTestAssembler(AssemblerDeps{Provider: newTestAmadeus(srv.URL)})

	it, err := a.GenerateItinerary(context.Background(), tripRequest(t, "2025-06-01", "2025-06-04", "Paris"))

	require.NoError(t, err)
	require.Len(t, it.Flights, 2)
	for _, f := range it.Flights {
		assert.Equal(t, SourceProvider, f.Source)
		assert.Equal(t, 512, f.PricePerPerson)
	}
	cost := CalculateTotalCost(it.Flights, it.Hotels, 2)
	assert.Equal(t, 2*1024, cost.FlightsTotal)
}

func TestGenerateItinerary_hotelFromSearchHint(t *testing.T) {
	a := newTestAssembler(AssemblerDeps{
		Provider: &fakeProvider{},
		Search: &fakeSearch{hotel: func(string) (HotelHint, error) {
			return HotelHint{Name: "Hotel Artemide", Price: 210}, nil
		}},
	})

	it, err := a.GenerateItinerary(context.Background(), tripRequest(t, "2025-06-01", "2025-06-03", "Rome"))

	require.NoError(t, err)
	require.Len(t, it.Hotels, 1)
	h := it.Hotels[0]
	assert.Equal(t, SourceSearch, h.Source)
	assert.Equal(t, "Hotel Artemide", h.Name)
	assert.Equal(t, 2, h.Nights)
	assert.Equal(t, 420, h.TotalPrice)
}

func TestGenerateItinerary_mandatoryActivityFirstAndOnce(t *testing.T) {
	a := newTestAssembler(AssemblerDeps{})
	req := tripRequest(t, "2025-06-01", "2025-06-04", "Paris")
	req.MandatoryActivities = map[string][]string{"Paris": {"Eiffel Tower"}}

	it, err := a.GenerateItinerary(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Eiffel Tower", it.Days[0].Activities[0].Title)

	count := 0
	for _, d := range it.Days {
		for _, act := range d.Activities {
			if act.Title == "Eiffel Tower" {
				count++
			}
		}
	}
	assert.Equal(t, 1, count)
}

func TestGenerateItinerary_concurrentMatchesSequential(t *testing.T) {
	req := tripRequest(t, "2025-06-01", "2025-06-08", "Paris", "Rome", "London")

	seq, err := newTestAssembler(AssemblerDeps{}).GenerateItinerary(context.Background(), req)
	require.NoError(t, err)
	par, err := newTestAssembler(AssemblerDeps{Concurrent: true}).GenerateItinerary(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, par.Flights, len(seq.Flights))
	for i := range seq.Flights {
		assert.Equal(t, seq.Flights[i].From, par.Flights[i].From)
		assert.Equal(t, seq.Flights[i].To, par.Flights[i].To)
		assert.Equal(t, seq.Flights[i].Date, par.Flights[i].Date)
	}
	require.Len(t, par.Hotels, len(seq.Hotels))
	for i := range seq.Hotels {
		assert.Equal(t, seq.Hotels[i].City, par.Hotels[i].City)
		assert.Equal(t, seq.Hotels[i].CheckInDate, par.Hotels[i].CheckInDate)
		assert.Equal(t, seq.Hotels[i].Nights, par.Hotels[i].Nights)
	}
	assert.Equal(t, seq.Days, par.Days)
}

func TestGenerateItinerary_images(t *testing.T) {
	req := tripRequest(t, "2025-06-01", "2025-06-02", "Tokyo")

	t.Run("stock", func(t *testing.T) {
		a := newTestAssembler(AssemblerDeps{Stock: fakeStock{url: "https://img.example/tokyo.jpg"}})
		it, err := a.GenerateItinerary(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "https://img.example/tokyo.jpg", it.DestinationImage)
		assert.False(t, it.ImagePersonalized)
	})

	t.Run("personalized", func(t *testing.T) {
		withImages := req
		withImages.TravelerImages = []string{"a.jpg", "b.jpg"}
		a := newTestAssembler(AssemblerDeps{
			Stock:        fakeStock{url: "https://img.example/tokyo.jpg"},
			Personalizer: fakePersonalizer{url: "data:image/png;base64,AAAA"},
		})
		it, err := a.GenerateItinerary(context.Background(), withImages)
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,AAAA", it.DestinationImage)
		assert.True(t, it.ImagePersonalized)
		require.NotNil(t, it.ImageMeta)
		assert.Equal(t, 2, it.ImageMeta.ReferenceCount)
	})

	t.Run("personalizer skipped without traveler images", func(t *testing.T) {
		a := newTestAssembler(AssemblerDeps{Personalizer: fakePersonalizer{url: "data:x"}})
		it, err := a.GenerateItinerary(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, PlaceholderImage, it.DestinationImage)
	})
}

func TestGenerateItinerary_validation(t *testing.T) {
	cases := map[string]func(*TripRequest){
		"no destinations":       func(r *TripRequest) { r.Destinations = nil },
		"blank destination":     func(r *TripRequest) { r.Destinations = []string{"Paris", "  "} },
		"end equals start":      func(r *TripRequest) { r.EndDate = r.StartDate },
		"end before start":      func(r *TripRequest) { r.EndDate = r.StartDate.AddDate(0, 0, -2) },
		"zero travelers":        func(r *TripRequest) { r.Travelers = 0 },
		"unknown purpose":       func(r *TripRequest) { r.Purpose = "Honeymoon" },
		"unknown traveler type": func(r *TripRequest) { r.TravelerType = "Pets" },
		"missing origin":        func(r *TripRequest) { r.OriginCity = " " },
		"mandatory for unknown": func(r *TripRequest) { r.MandatoryActivities = map[string][]string{"Berlin": {"Reichstag"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			provider := &fakeProvider{}
			a := newTestAssembler(AssemblerDeps{Provider: provider})
			req := tripRequest(t, "2025-06-01", "2025-06-04", "Paris")
			mutate(&req)

			_, err := a.GenerateItinerary(context.Background(), req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), err.Error())
			assert.Zero(t, provider.calls.Load(), "no lookups before validation passes")
		})
	}
}

func TestGenerateItinerary_daySplitAcrossShapes(t *testing.T) {
	cities := []string{"Paris", "Rome", "Vienna", "Tokyo", "Lima", "Cairo"}
	start := day(t, "2025-03-01")
	a := newTestAssembler(AssemblerDeps{})

	for n := 1; n <= len(cities); n++ {
		for days := 1; days <= 15; days++ {
			t.Run(fmt.Sprintf("%d cities %d days", n, days), func(t *testing.T) {
				req := tripRequest(t, "2025-03-01", "2025-03-02", cities[:n]...)
				req.EndDate = start.AddDate(0, 0, days)

				it, err := a.GenerateItinerary(context.Background(), req)
				require.NoError(t, err)
				require.Len(t, it.Days, days)

				perCity := map[string]int{}
				for i, d := range it.Days {
					assert.Equal(t, i+1, d.Day)
					assert.Equal(t, formatDate(start.AddDate(0, 0, i)), d.Date)
					perCity[d.City]++
				}

				floor, extra := days/n, days%n
				for i, city := range cities[:n] {
					want := floor
					if i < extra {
						want++
					}
					assert.Equal(t, want, perCity[city], city)
				}
			})
		}
	}
}
