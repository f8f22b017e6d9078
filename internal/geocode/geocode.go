// Package geocode turns free-form place text into coordinates and coordinates
// into a human-readable label using an external provider.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	"github.com/USA-RedDragon/itinerary-server/internal/metrics"
	"github.com/go-errors/errors"
)

// DefaultRequester is sent to the provider when the caller is anonymous.
const DefaultRequester = "anonymous@itinerary-server.local"

var (
	ErrNotFound = errors.New("no geocoding match")
	ErrProvider = errors.New("geocoding provider error")
)

type Place struct {
	Latitude  float64
	Longitude float64
	Label     string
}

type Geocoder interface {
	Forward(ctx context.Context, query string, requester string) (Place, error)
	Reverse(ctx context.Context, lat, lng float64, requester string) (Place, error)
}

func New(cfg *config.Config, m *metrics.Metrics) (Geocoder, error) {
	client := &http.Client{Timeout: cfg.Geocoding.Timeout}
	var g Geocoder
	switch cfg.Geocoding.Provider {
	case config.GeocodingProviderNominatim:
		g = NewNominatim(client, cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent)
	case config.GeocodingProviderMapbox:
		g = NewMapbox(client, cfg.Geocoding.BaseURL, cfg.Geocoding.Mapbox.SecretToken)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownGeocodingProvider, cfg.Geocoding.Provider)
	}
	return Instrument(g, m), nil
}

func requesterOrDefault(requester string) string {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return DefaultRequester
	}
	return requester
}

// firstSegment returns the text before the first comma, trimmed.
func firstSegment(label string) string {
	head, _, _ := strings.Cut(label, ",")
	return strings.TrimSpace(head)
}

func providerError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProvider, fmt.Sprintf(format, args...))
}

type instrumented struct {
	next    Geocoder
	metrics *metrics.Metrics
}

// Instrument counts every call to g by mode and outcome.
func Instrument(g Geocoder, m *metrics.Metrics) Geocoder {
	if m == nil {
		return g
	}
	return &instrumented{next: g, metrics: m}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (i *instrumented) Forward(ctx context.Context, query string, requester string) (Place, error) {
	place, err := i.next.Forward(ctx, query, requester)
	i.metrics.ObserveGeocode("forward", outcome(err))
	return place, err
}

func (i *instrumented) Reverse(ctx context.Context, lat, lng float64, requester string) (Place, error) {
	place, err := i.next.Reverse(ctx, lat, lng, requester)
	i.metrics.ObserveGeocode("reverse", outcome(err))
	return place, err
}
