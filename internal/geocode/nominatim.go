package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/USA-RedDragon/itinerary-server/internal/utils"
)

type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func NewNominatim(client *http.Client, baseURL, userAgent string) *Nominatim {
	return &Nominatim{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

func (n *Nominatim) get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := utils.HTTPRequest(ctx, n.client, http.MethodGet, n.baseURL+path+"?"+query.Encode(), nil, map[string]string{
		"User-Agent": n.userAgent,
		"Accept":     "application/json",
	})
	if err != nil {
		return providerError("%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providerError("nominatim returned status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return providerError("failed to decode nominatim response: %v", err)
	}
	return nil
}

func (p nominatimPlace) coordinates() (float64, float64, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return 0, 0, providerError("invalid latitude %q", p.Lat)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return 0, 0, providerError("invalid longitude %q", p.Lon)
	}
	return lat, lng, nil
}

func (n *Nominatim) Forward(ctx context.Context, query string, requester string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, ErrNotFound
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("email", requesterOrDefault(requester))

	var results []nominatimPlace
	if err := n.get(ctx, "/search", params, &results); err != nil {
		return Place{}, err
	}
	if len(results) == 0 {
		return Place{}, ErrNotFound
	}
	lat, lng, err := results[0].coordinates()
	if err != nil {
		return Place{}, err
	}
	label := strings.TrimSpace(results[0].Name)
	if label == "" {
		label = firstSegment(results[0].DisplayName)
	}
	return Place{Latitude: lat, Longitude: lng, Label: label}, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64, requester string) (Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("email", requesterOrDefault(requester))

	var result nominatimPlace
	if err := n.get(ctx, "/reverse", params, &result); err != nil {
		return Place{}, err
	}
	if result.Error != "" || result.DisplayName == "" {
		return Place{}, ErrNotFound
	}
	// Nominatim echoes the snapped coordinates; keep the caller's when absent.
	if result.Lat != "" && result.Lon != "" {
		snappedLat, snappedLng, err := result.coordinates()
		if err != nil {
			return Place{}, err
		}
		lat, lng = snappedLat, snappedLng
	}
	return Place{Latitude: lat, Longitude: lng, Label: result.DisplayName}, nil
}
