package itinerary

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/USA-RedDragon/itinerary-server/internal/geocode"
)

var coordinatePair = regexp.MustCompile(`^\s*([-+]?\d+(?:\.\d+)?)\s*,\s*([-+]?\d+(?:\.\d+)?)\s*$`)

type Candidate struct {
	Latitude  float64
	Longitude float64
	Label     string
	// FromCoordinates is set when the input was a "<lat>,<lng>" pair.
	FromCoordinates bool
}

// ParseCoordinatePair reports whether raw is a strict "<lat>,<lng>" pair.
// Range is not checked; out-of-range pairs are left to the provider.
func ParseCoordinatePair(raw string) (float64, float64, bool) {
	m := coordinatePair.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

type Normalizer struct {
	geocoder geocode.Geocoder
}

func NewNormalizer(geocoder geocode.Geocoder) *Normalizer {
	return &Normalizer{geocoder: geocoder}
}

// Resolve geocodes a single raw input. A false result means the input was
// skipped; the caller picks the policy for skipped input.
func (n *Normalizer) Resolve(ctx context.Context, raw string, requester string) (Candidate, bool) {
	var (
		place geocode.Place
		err   error
	)
	lat, lng, isPair := ParseCoordinatePair(raw)
	if isPair {
		place, err = n.geocoder.Reverse(ctx, lat, lng, requester)
	} else {
		place, err = n.geocoder.Forward(ctx, raw, requester)
	}
	if err != nil {
		classification := "provider_error"
		if errors.Is(err, geocode.ErrNotFound) {
			classification = "not_found"
		}
		slog.Warn("Skipping waypoint", "input", strings.TrimSpace(raw), "classification", classification, "error", err)
		return Candidate{}, false
	}
	return Candidate{
		Latitude:        place.Latitude,
		Longitude:       place.Longitude,
		Label:           place.Label,
		FromCoordinates: isPair,
	}, true
}
