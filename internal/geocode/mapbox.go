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

const mapboxPlacesPath = "/geocoding/v5/mapbox.places/"

// Mapbox implements Geocoder on the Mapbox Geocoding v5 API. Mapbox has no
// requester parameter, so the requester identity is ignored.
type Mapbox struct {
	client  *http.Client
	baseURL string
	token   string
}

type mapboxResponse struct {
	Features []struct {
		Text      string    `json:"text"`
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

func NewMapbox(client *http.Client, baseURL, token string) *Mapbox {
	return &Mapbox{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (m *Mapbox) lookup(ctx context.Context, search string) (mapboxResponse, error) {
	query := url.Values{}
	query.Set("access_token", m.token)
	query.Set("limit", "1")
	endpoint := m.baseURL + mapboxPlacesPath + url.PathEscape(search) + ".json?" + query.Encode()

	var response mapboxResponse
	resp, err := utils.HTTPRequest(ctx, m.client, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return response, providerError("%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return response, providerError("mapbox returned status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return response, providerError("failed to decode mapbox response: %v", err)
	}
	return response, nil
}

func (m *Mapbox) Forward(ctx context.Context, query string, _ string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, ErrNotFound
	}
	response, err := m.lookup(ctx, query)
	if err != nil {
		return Place{}, err
	}
	if len(response.Features) == 0 {
		return Place{}, ErrNotFound
	}
	feature := response.Features[0]
	if len(feature.Center) != 2 {
		return Place{}, providerError("mapbox feature has no center")
	}
	label := strings.TrimSpace(feature.Text)
	if label == "" {
		label = firstSegment(feature.PlaceName)
	}
	return Place{Latitude: feature.Center[1], Longitude: feature.Center[0], Label: label}, nil
}

func (m *Mapbox) Reverse(ctx context.Context, lat, lng float64, _ string) (Place, error) {
	search := strconv.FormatFloat(lng, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64)
	response, err := m.lookup(ctx, search)
	if err != nil {
		return Place{}, err
	}
	if len(response.Features) == 0 || response.Features[0].PlaceName == "" {
		return Place{}, ErrNotFound
	}
	return Place{Latitude: lat, Longitude: lng, Label: response.Features[0].PlaceName}, nil
}
