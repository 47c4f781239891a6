package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// A cached credential is refreshed once it is within this window of expiry.
const tokenRefreshMargin = 60 * time.Second

const (
	AmadeusTestURL       = "https://test.api.amadeus.com"
	AmadeusProductionURL = "https://api.amadeus.com"
)

// ─── Amadeus Client ───────────────────────────────────────────────────────────

type AmadeusConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *slog.Logger
	// RequestsPerSecond paces outbound calls. Zero means 10.
	RequestsPerSecond float64
}

// AmadeusClient is the flight/hotel/location provider adapter. It owns the
// bearer credential and the city code cache; construct one per process.
type AmadeusClient struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
	log          *slog.Logger
	limiter      *rate.Limiter
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	refresh     singleflight.Group

	codes *cache.Cache
}

func NewAmadeusClient(cfg AmadeusConfig) *AmadeusClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = AmadeusTestURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	codes := cache.New(cache.NoExpiration, 0)
	for city, code := range knownCityCodes {
		codes.Set(cityKey(city), code, cache.NoExpiration)
	}

	return &AmadeusClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   cfg.HTTPClient,
		log:          cfg.Logger.With("component", "amadeus"),
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		now:          time.Now,
		codes:        codes,
	}
}

// Configured reports whether credentials were supplied.
func (c *AmadeusClient) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// ─── OAuth2 Token ─────────────────────────────────────────────────────────────

// Credential returns the cached bearer token, requesting a new one when none
// is cached or the cached one expires within a minute. Concurrent callers
// share a single refresh.
func (c *AmadeusClient) Credential(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, expiry := c.accessToken, c.tokenExpiry
	c.mu.Unlock()

	if token != "" && expiry.Sub(c.now()) > tokenRefreshMargin {
		return token, nil
	}

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		return c.refreshToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *AmadeusClient) refreshToken(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: client credentials not configured", ErrAuth)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/security/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request failed (%d): %s", ErrAuth, resp.StatusCode, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(result.ExpiresIn) * time.Second)
	c.mu.Unlock()

	c.log.Debug("credential refreshed", "expires_in", result.ExpiresIn)
	return result.AccessToken, nil
}

func (c *AmadeusClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("amadeus error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// ─── Flight Search ────────────────────────────────────────────────────────────

type amadeusSegment struct {
	Departure struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
	CarrierCode string `json:"carrierCode"`
	Number      string `json:"number"`
}

type amadeusFlightOffer struct {
	ID    string `json:"id"`
	Price struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
	Itineraries []struct {
		Duration string           `json:"duration"`
		Segments []amadeusSegment `json:"segments"`
	} `json:"itineraries"`
	ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
}

type amadeusFlightOffersResponse struct {
	Data         []amadeusFlightOffer `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
	} `json:"dictionaries"`
}

// LookupFlight returns the first-ranked one-way offer. Any failure, including
// authentication, is logged and reported as no result.
func (c *AmadeusClient) LookupFlight(ctx context.Context, originCode, destCode string, date time.Time, travelers int) (FlightLeg, bool) {
	if !c.Configured() {
		return FlightLeg{}, false
	}

	q := url.Values{}
	q.Set("originLocationCode", originCode)
	q.Set("destinationLocationCode", destCode)
	q.Set("departureDate", formatDate(date))
	adults := max(1, travelers)
	q.Set("adults", strconv.Itoa(adults))
	q.Set("currencyCode", "USD")
	q.Set("max", "5")

	body, err := c.get(ctx, "/v2/shopping/flight-offers", q)
	if err != nil {
		c.log.Warn("flight search failed", "origin", originCode, "destination", destCode, "error", err)
		return FlightLeg{}, false
	}

	leg, err := parseBestFlightOffer(body, adults)
	if err != nil {
		c.log.Info("no flight offer", "origin", originCode, "destination", destCode, "reason", err)
		return FlightLeg{}, false
	}
	return leg, true
}

// parseBestFlightOffer returns the first usable offer. An offer's total
// covers every adult on the booking, so it is divided back to a fare per
// person.
func parseBestFlightOffer(data []byte, adults int) (FlightLeg, error) {
	adults = max(1, adults)

	var resp amadeusFlightOffersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return FlightLeg{}, fmt.Errorf("failed to parse flight offers: %w", err)
	}

	for _, offer := range resp.Data {
		if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
			continue
		}
		price := parsePrice(offer.Price.Total)
		if price <= 0 {
			continue
		}

		it := offer.Itineraries[0]
		first := it.Segments[0]
		last := it.Segments[len(it.Segments)-1]

		code := first.CarrierCode
		if len(offer.ValidatingAirlineCodes) > 0 && offer.ValidatingAirlineCodes[0] != "" {
			code = offer.ValidatingAirlineCodes[0]
		}
		name := resp.Dictionaries.Carriers[code]
		if name == "" {
			name = airlineName(code)
		}

		date, depTime := splitTimestamp(first.Departure.At)
		_, arrTime := splitTimestamp(last.Arrival.At)

		return FlightLeg{
			From:           first.Departure.IataCode,
			To:             last.Arrival.IataCode,
			Date:           date,
			DepartureTime:  depTime,
			ArrivalTime:    arrTime,
			Airline:        name,
			FlightNumber:   first.CarrierCode + first.Number,
			PricePerPerson: int(math.Round(price / float64(adults))),
			Duration:       parseDuration(it.Duration),
			Source:         SourceProvider,
		}, nil
	}
	return FlightLeg{}, ErrNoResult
}

// ─── Hotel Search ─────────────────────────────────────────────────────────────

type amadeusHotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
		Name    string `json:"name"`
	} `json:"data"`
}

type amadeusHotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID  string `json:"hotelId"`
			Name     string `json:"name"`
			CityCode string `json:"cityCode"`
		} `json:"hotel"`
		Available bool `json:"available"`
		Offers    []struct {
			Price struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
}

// LookupHotel resolves city to a location code and returns the first
// available offer. The nightly price is the offer total divided by nights.
func (c *AmadeusClient) LookupHotel(ctx context.Context, city string, checkIn, checkOut time.Time) (HotelStay, bool) {
	if !c.Configured() {
		return HotelStay{}, false
	}

	code, ok := c.ResolveLocationCode(ctx, city)
	if !ok {
		return HotelStay{}, false
	}

	ids, err := c.hotelIDsByCity(ctx, code)
	if err != nil || len(ids) == 0 {
		c.log.Warn("hotel list failed", "city", city, "code", code, "error", err)
		return HotelStay{}, false
	}
	if len(ids) > 20 {
		ids = ids[:20]
	}

	q := url.Values{}
	q.Set("hotelIds", strings.Join(ids, ","))
	q.Set("checkInDate", formatDate(checkIn))
	q.Set("checkOutDate", formatDate(checkOut))
	q.Set("adults", "1")
	q.Set("roomQuantity", "1")
	q.Set("currency", "USD")
	q.Set("bestRateOnly", "true")

	body, err := c.get(ctx, "/v3/shopping/hotel-offers", q)
	if err != nil {
		c.log.Warn("hotel offers failed", "city", city, "error", err)
		return HotelStay{}, false
	}

	var resp amadeusHotelOffersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Warn("failed to parse hotel offers", "city", city, "error", err)
		return HotelStay{}, false
	}

	nights := max(1, daysBetween(checkIn, checkOut))
	for _, item := range resp.Data {
		if !item.Available || len(item.Offers) == 0 {
			continue
		}
		total := parsePrice(item.Offers[0].Price.Total)
		if total <= 0 {
			continue
		}
		return HotelStay{
			City:          city,
			Name:          item.Hotel.Name,
			CheckInDate:   formatDate(checkIn),
			CheckOutDate:  formatDate(checkOut),
			PricePerNight: int(math.Round(total / float64(nights))),
			Nights:        nights,
			TotalPrice:    int(math.Round(total)),
			Source:        SourceProvider,
		}, true
	}

	c.log.Info("no hotel offers", "city", city)
	return HotelStay{}, false
}

func (c *AmadeusClient) hotelIDsByCity(ctx context.Context, cityCode string) ([]string, error) {
	q := url.Values{}
	q.Set("cityCode", cityCode)
	q.Set("radius", "5")
	q.Set("radiusUnit", "KM")
	q.Set("hotelSource", "ALL")

	body, err := c.get(ctx, "/v1/reference-data/locations/hotels/by-city", q)
	if err != nil {
		return nil, err
	}

	var resp amadeusHotelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse hotel list: %w", err)
	}

	ids := make([]string, 0, len(resp.Data))
	for _, h := range resp.Data {
		ids = append(ids, h.HotelID)
	}
	return ids, nil
}

// ─── Location codes ───────────────────────────────────────────────────────────

var knownCityCodes = map[string]string{
	"New York": "NYC", "Los Angeles": "LAX", "Chicago": "CHI", "San Francisco": "SFO",
	"Miami": "MIA", "Boston": "BOS", "Seattle": "SEA", "London": "LON",
	"Paris": "PAR", "Rome": "ROM", "Tokyo": "TYO", "Dubai": "DXB",
	"Singapore": "SIN", "Hong Kong": "HKG", "Sydney": "SYD", "Barcelona": "BCN",
	"Amsterdam": "AMS", "Berlin": "BER", "Madrid": "MAD", "Toronto": "YTO",
	"Istanbul": "IST", "Frankfurt": "FRA", "Tashkent": "TAS", "Bangkok": "BKK",
}

func cityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// ResolveLocationCode maps a city name to its IATA city code, consulting the
// cache before the provider's location API.
func (c *AmadeusClient) ResolveLocationCode(ctx context.Context, city string) (string, bool) {
	key := cityKey(city)
	if key == "" {
		return "", false
	}
	if v, ok := c.codes.Get(key); ok {
		return v.(string), true
	}
	if !c.Configured() {
		return "", false
	}

	q := url.Values{}
	q.Set("keyword", city)
	q.Set("subType", "CITY")
	q.Set("max", "1")

	body, err := c.get(ctx, "/v1/reference-data/locations", q)
	if err != nil {
		c.log.Warn("location lookup failed", "city", city, "error", err)
		return "", false
	}

	var resp struct {
		Data []struct {
			IataCode string `json:"iataCode"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Data) == 0 || resp.Data[0].IataCode == "" {
		return "", false
	}

	code := resp.Data[0].IataCode
	c.codes.Set(key, code, cache.NoExpiration)
	return code, true
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?`)

// parseDuration converts ISO 8601 duration (PT5H30M) to "5h 30m".
func parseDuration(iso string) string {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return "N/A"
	}
	h, mins := m[1], m[2]
	if h == "" {
		h = "0"
	}
	if mins == "" {
		mins = "0"
	}
	return h + "h " + mins + "m"
}

// splitTimestamp splits "2025-06-01T10:35:00" into date and "10:35".
func splitTimestamp(at string) (date, clock string) {
	t, err := time.Parse("2006-01-02T15:04:05", at)
	if err != nil {
		date, _, _ = strings.Cut(at, "T")
		return date, ""
	}
	return t.Format(DateLayout), t.Format("15:04")
}

func parsePrice(s string) float64 {
	price, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return price
}

// airlineName returns full airline name from IATA code
func airlineName(code string) string {
	names := map[string]string{
		"TK": "Turkish Airlines",
		"LH": "Lufthansa",
		"AF": "Air France",
		"BA": "British Airways",
		"EK": "Emirates",
		"QR": "Qatar Airways",
		"UA": "United Airlines",
		"AA": "American Airlines",
		"DL": "Delta Air Lines",
		"KL": "KLM",
		"IB": "Iberia",
		"AZ": "ITA Airways",
		"LX": "Swiss International Air Lines",
		"SQ": "Singapore Airlines",
		"CX": "Cathay Pacific",
		"NH": "ANA",
		"JL": "Japan Airlines",
		"AC": "Air Canada",
		"EY": "Etihad Airways",
		"FR": "Ryanair",
		"U2": "EasyJet",
	}
	if name, ok := names[code]; ok {
		return name
	}
	if code != "" {
		return code
	}
	return "Unknown Airline"
}
