package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchServer(t *testing.T, respond func(req tavilyRequest) (int, tavilyResponse)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-key", req.APIKey)

		status, body := respond(req)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestSearch(baseURL string) *SearchClient {
	return NewSearchClient(SearchConfig{APIKey: "tvly-key", BaseURL: baseURL, Logger: discardLogger()})
}

func TestExtractHotelName(t *testing.T) {
	name, ok := extractHotelName("Stay at the Le Meurice Hotel, a palace on Rue de Rivoli")
	require.True(t, ok)
	assert.Equal(t, "Le Meurice Hotel", name)

	name, ok = extractHotelName("Book the Trastevere Garden Inn for quiet nights")
	require.True(t, ok)
	assert.Equal(t, "Trastevere Garden Inn", name)

	for _, text := range []string{
		"cheap rooms near the station",
		"The Colosseum area guide",
		"The Best Hotels in Rome",
		"The Top Places To Stay",
		"Hotel Artemide review",
	} {
		_, ok := extractHotelName(text)
		assert.False(t, ok, text)
	}
}

func TestExtractNightlyPrice(t *testing.T) {
	cases := []struct {
		text string
		want int
		ok   bool
	}{
		{"Rooms from $320 per night", 320, true},
		{"Average around $95", 95, true},
		{"Typically 150 USD including breakfast", 150, true},
		{"Only $12 per night in a dorm", 0, false},
		{"Suites at $2500 per night", 0, false},
		{"no prices here", 0, false},
	}
	for _, tc := range cases {
		got, ok := extractNightlyPrice(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestSearchHotelText_triesVariantsUntilHint(t *testing.T) {
	srv, calls := newSearchServer(t, func(req tavilyRequest) (int, tavilyResponse) {
		if strings.HasPrefix(req.Query, "hotels in") {
			return http.StatusOK, tavilyResponse{Results: []SearchResult{{Title: "Travel guide", Content: "nothing useful"}}}
		}
		return http.StatusOK, tavilyResponse{Results: []SearchResult{
			{Title: "Artemide Boutique Hotel review", Content: "Rooms from $210 per night near Termini"},
		}}
	})

	hint, err := newTestSearch(srv.URL).SearchHotelText(context.Background(), "Rome", PurposeVacation)

	require.NoError(t, err)
	assert.Equal(t, 210, hint.Price)
	assert.Contains(t, hint.Name, "Artemide")
	assert.EqualValues(t, 2, calls.Load())
}

func TestSearchHotelText_priceWithoutHotelNameIsNoResult(t *testing.T) {
	srv, calls := newSearchServer(t, func(tavilyRequest) (int, tavilyResponse) {
		return http.StatusOK, tavilyResponse{Results: []SearchResult{
			{Title: "The Colosseum area guide", Content: "Rooms from $150 per night"},
		}}
	})

	_, err := newTestSearch(srv.URL).SearchHotelText(context.Background(), "Rome", PurposeVacation)

	assert.True(t, errors.Is(err, ErrNoResult))
	assert.EqualValues(t, 3, calls.Load())
}

func TestSearchHotelText_exhaustedIsNoResult(t *testing.T) {
	srv, calls := newSearchServer(t, func(tavilyRequest) (int, tavilyResponse) {
		return http.StatusBadGateway, tavilyResponse{}
	})

	_, err := newTestSearch(srv.URL).SearchHotelText(context.Background(), "Rome", PurposeBusiness)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoResult))
	assert.EqualValues(t, 3, calls.Load())
}

func TestSearchActivityText(t *testing.T) {
	srv, _ := newSearchServer(t, func(req tavilyRequest) (int, tavilyResponse) {
		assert.Equal(t, 10, req.MaxResults)
		assert.Contains(t, req.Query, "coworking")
		results := make([]SearchResult, 12)
		for i := range results {
			results[i] = SearchResult{Title: "Result"}
		}
		return http.StatusOK, tavilyResponse{Results: results}
	})

	got, err := newTestSearch(srv.URL).SearchActivityText(context.Background(), "Berlin", PurposeBusiness)

	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestSearchActivityText_errors(t *testing.T) {
	srv, _ := newSearchServer(t, func(tavilyRequest) (int, tavilyResponse) {
		return http.StatusTooManyRequests, tavilyResponse{}
	})

	_, err := newTestSearch(srv.URL).SearchActivityText(context.Background(), "Berlin", PurposeVacation)
	assert.Error(t, err)

	_, err = NewSearchClient(SearchConfig{Logger: discardLogger()}).SearchActivityText(context.Background(), "Berlin", PurposeVacation)
	assert.Error(t, err)
}
