package utils_test

import (
	"math"
	"testing"

	"github.com/USA-RedDragon/itinerary-server/internal/utils"
)

var (
	devonTower      = utils.Point{Lat: 35.4669626, Lng: -97.5280147}
	anthemBrewing   = utils.Point{Lat: 35.4674537, Lng: -97.5331325}
	willRogers      = utils.Point{Lat: 35.3954731, Lng: -97.6065239}
	ouCampus        = utils.Point{Lat: 35.3956022, Lng: -97.9258855}
	rocklahoma      = utils.Point{Lat: 36.3638353, Lng: -95.2886689}
	gatewayArch     = utils.Point{Lat: 38.6251432, Lng: -90.1970501}
	statueOfLiberty = utils.Point{Lat: 40.6892494, Lng: -74.0445004}
	reykjavik       = utils.Point{Lat: 64.1334904, Lng: -21.8524423}
	tokyo           = utils.Point{Lat: 35.5092405, Lng: 139.7698121}
)

func TestHaversine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b utils.Point
		want float64
	}{
		{"Devon Tower to Anthem Brewing", devonTower, anthemBrewing, 467},
		{"Devon Tower to Will Rogers", devonTower, willRogers, 10667},
		{"OU Campus to Rocklahoma", ouCampus, rocklahoma, 260843},
		{"Gateway Arch to Statue of Liberty", gatewayArch, statueOfLiberty, 1399606},
		{"Reykjavík to Tokyo", reykjavik, tokyo, 8818082},
		{"Reykjavík to Gateway Arch", reykjavik, gatewayArch, 5178408},
		{"Tokyo to Statue of Liberty", tokyo, statueOfLiberty, 10864801},
	}
	for _, tt := range tests {
		there := math.Round(utils.Haversine(tt.a.Lat, tt.a.Lng, tt.b.Lat, tt.b.Lng))
		back := math.Round(utils.Haversine(tt.b.Lat, tt.b.Lng, tt.a.Lat, tt.a.Lng))
		if there != tt.want || back != tt.want {
			t.Errorf("%s: expected %.0f meters both ways, got %.0f and %.0f", tt.name, tt.want, there, back)
		}
	}
}

func TestPathLength(t *testing.T) {
	t.Parallel()

	if got := utils.PathLength(nil); got != 0 {
		t.Errorf("expected 0 for an empty path, got %f", got)
	}
	if got := utils.PathLength([]utils.Point{tokyo}); got != 0 {
		t.Errorf("expected 0 for a single stop, got %f", got)
	}

	path := []utils.Point{devonTower, anthemBrewing, willRogers}
	want := utils.Haversine(devonTower.Lat, devonTower.Lng, anthemBrewing.Lat, anthemBrewing.Lng) +
		utils.Haversine(anthemBrewing.Lat, anthemBrewing.Lng, willRogers.Lat, willRogers.Lng)
	if got := utils.PathLength(path); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, got)
	}
}
