package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

type fakeProvider struct {
	flight func(originCode, destCode string, date time.Time, travelers int) (FlightLeg, bool)
	hotel  func(city string, checkIn, checkOut time.Time) (HotelStay, bool)
	calls  atomic.Int32
}

func (f *fakeProvider) LookupFlight(_ context.Context, originCode, destCode string, date time.Time, travelers int) (FlightLeg, bool) {
	f.calls.Add(1)
	if f.flight == nil {
		return FlightLeg{}, false
	}
	return f.flight(originCode, destCode, date, travelers)
}

func (f *fakeProvider) LookupHotel(_ context.Context, city string, checkIn, checkOut time.Time) (HotelStay, bool) {
	f.calls.Add(1)
	if f.hotel == nil {
		return HotelStay{}, false
	}
	return f.hotel(city, checkIn, checkOut)
}

func (f *fakeProvider) ResolveLocationCode(_ context.Context, city string) (string, bool) {
	return "", false
}

type fakeSearch struct {
	hotel      func(city string) (HotelHint, error)
	activities func(city string) ([]SearchResult, error)
}

func (f *fakeSearch) SearchHotelText(_ context.Context, city string, _ Purpose) (HotelHint, error) {
	if f.hotel == nil {
		return HotelHint{}, ErrNoResult
	}
	return f.hotel(city)
}

func (f *fakeSearch) SearchActivityText(_ context.Context, city string, _ Purpose) ([]SearchResult, error) {
	if f.activities == nil {
		return nil, errUpstream
	}
	return f.activities(city)
}

type fakeStock struct {
	url string
	err error
}

func (f fakeStock) StockImage(context.Context, string) (string, error) { return f.url, f.err }

type fakePersonalizer struct {
	url string
	err error
}

func (f fakePersonalizer) Personalize(_ context.Context, dest string, images []string) (string, ImageMeta, error) {
	if f.err != nil {
		return "", ImageMeta{}, f.err
	}
	return f.url, ImageMeta{Model: "test-model", Prompt: "photo in " + dest, ReferenceCount: len(images)}, nil
}
