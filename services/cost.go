package services

// CalculateTotalCost sums flight fares for every traveler and hotel totals.
// Activities are not priced. Pure: the same inputs always give the same result.
func CalculateTotalCost(flights []FlightLeg, hotels []HotelStay, travelers int) CostBreakdown {
	var flightsTotal, hotelsTotal int
	for _, f := range flights {
		flightsTotal += f.PricePerPerson * travelers
	}
	for _, h := range hotels {
		hotelsTotal += h.TotalPrice
	}
	return CostBreakdown{
		FlightsTotal: flightsTotal,
		HotelsTotal:  hotelsTotal,
		Total:        flightsTotal + hotelsTotal,
	}
}

// Comparison is a side-by-side summary of two itineraries for one trip.
type Comparison struct {
	A           CostBreakdown  `json:"a"`
	B           CostBreakdown  `json:"b"`
	TotalDelta  int            `json:"total_delta"` // B.Total - A.Total
	Cheaper     string         `json:"cheaper"`     // "a", "b" or "equal"
	DaysA       map[string]int `json:"days_per_city_a"`
	DaysB       map[string]int `json:"days_per_city_b"`
	ActivitiesA int            `json:"activities_a"`
	ActivitiesB int            `json:"activities_b"`
}

// CompareItineraries prices both itineraries for the same traveler count.
func CompareItineraries(a, b ItineraryData, travelers int) Comparison {
	c := Comparison{
		A:     CalculateTotalCost(a.Flights, a.Hotels, travelers),
		B:     CalculateTotalCost(b.Flights, b.Hotels, travelers),
		DaysA: daysPerCity(a.Days),
		DaysB: daysPerCity(b.Days),
	}
	c.TotalDelta = c.B.Total - c.A.Total
	switch {
	case c.TotalDelta > 0:
		c.Cheaper = "a"
	case c.TotalDelta < 0:
		c.Cheaper = "b"
	default:
		c.Cheaper = "equal"
	}
	for _, d := range a.Days {
		c.ActivitiesA += len(d.Activities)
	}
	for _, d := range b.Days {
		c.ActivitiesB += len(d.Activities)
	}
	return c
}

func daysPerCity(days []DayPlan) map[string]int {
	out := make(map[string]int)
	for _, d := range days {
		out[d.City]++
	}
	return out
}
