package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const TavilyURL = "https://api.tavily.com"

const (
	minHintPrice = 40
	maxHintPrice = 800
)

// SearchResult is one raw web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// HotelHint is a hotel name and nightly price pulled out of search snippets.
type HotelHint struct {
	Name  string
	Price int
}

type SearchConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// SearchClient queries a generic web search API for hotel and activity text.
type SearchClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewSearchClient(cfg SearchConfig) *SearchClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = TavilyURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SearchClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		log:        cfg.Logger.With("component", "search"),
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

func (c *SearchClient) search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("search API key not configured")
	}

	jsonBody, err := json.Marshal(tavilyRequest{APIKey: c.apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search error (%d): %s", resp.StatusCode, string(body))
	}

	var out tavilyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	return out.Results, nil
}

// ─── Hotels ───────────────────────────────────────────────────────────────────

func hotelQueries(city string, purpose Purpose) []string {
	kind := "tourist"
	if purpose == PurposeBusiness {
		kind = "business"
	}
	return []string{
		fmt.Sprintf("hotels in %s city center district price per night", city),
		fmt.Sprintf("best rated %s hotels in %s average price per night", kind, city),
		fmt.Sprintf("where to stay in %s hotel prices per night", city),
	}
}

// A name is one to five capitalized words ending in a lodging word.
var hotelNamePattern = regexp.MustCompile(`\b((?:[A-Z][\w'&.-]*\s+){1,5}(?:Hotel|Inn|Resort|Suites|Lodge|Hostel))\b`)

var hotelPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s?(\d{2,4})(?:\.\d{2})?\s*(?:per|/|a)\s*night`),
	regexp.MustCompile(`(?i)(?:from|average|avg\.?|around|about)\s+(?:US)?\$\s?(\d{2,4})`),
	regexp.MustCompile(`(?i)(\d{2,4})\s*(?:USD|dollars)`),
	regexp.MustCompile(`\$\s?(\d{2,4})\b`),
}

// extractHotelName returns the first match whose length is 5–60.
func extractHotelName(text string) (string, bool) {
	for _, m := range hotelNamePattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if len(name) >= 5 && len(name) <= 60 {
			return name, true
		}
	}
	return "", false
}

// extractNightlyPrice returns the first price in [40, 800].
func extractNightlyPrice(text string) (int, bool) {
	for _, re := range hotelPricePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			p, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if p >= minHintPrice && p <= maxHintPrice {
				return p, true
			}
		}
	}
	return 0, false
}

// SearchHotelText tries up to three query variants and stops at the first
// whose results yield both a hotel name and a plausible nightly price.
// Returns ErrNoResult when every variant comes up short.
func (c *SearchClient) SearchHotelText(ctx context.Context, city string, purpose Purpose) (HotelHint, error) {
	for _, q := range hotelQueries(city, purpose) {
		results, err := c.search(ctx, q, 5)
		if err != nil {
			c.log.Warn("hotel search failed", "city", city, "query", q, "error", err)
			continue
		}

		var hint HotelHint
		for _, r := range results {
			text := r.Title + " " + r.Content
			if hint.Name == "" {
				if name, ok := extractHotelName(text); ok {
					hint.Name = name
				}
			}
			if hint.Price == 0 {
				if p, ok := extractNightlyPrice(text); ok {
					hint.Price = p
				}
			}
			if hint.Name != "" && hint.Price != 0 {
				return hint, nil
			}
		}
	}
	return HotelHint{}, fmt.Errorf("hotel text for %s: %w", city, ErrNoResult)
}

// ─── Activities ───────────────────────────────────────────────────────────────

// SearchActivityText runs one purpose-specific query and returns up to ten
// raw results.
func (c *SearchClient) SearchActivityText(ctx context.Context, city string, purpose Purpose) ([]SearchResult, error) {
	query := fmt.Sprintf("top tourist attractions in %s things to do landmarks museums", city)
	if purpose == PurposeBusiness {
		query = fmt.Sprintf("business activities and places in %s coworking spaces conference centers", city)
	}

	results, err := c.search(ctx, query, 10)
	if err != nil {
		return nil, fmt.Errorf("activity search for %s: %w", city, err)
	}
	return results, nil
}
