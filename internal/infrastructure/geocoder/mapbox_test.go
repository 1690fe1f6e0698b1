package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"WhereAmI/internal/config"
)

const bassendean = `{
  "features": [
    {"place_type": ["locality"], "text": "Bassendean", "place_name": "Bassendean, Western Australia, Australia",
     "properties": {"wikidata": "Q2887395"}},
    {"place_type": ["place"], "text": "Perth", "place_name": "Perth, Western Australia, Australia",
     "properties": {"wikidata": "Q3183"}},
    {"place_type": ["region"], "text": "Western Australia", "place_name": "Western Australia, Australia",
     "properties": {"wikidata": "Q3206"}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.MapboxConfig{BaseURL: server.URL + "/", Token: "pk.test"}, server.Client())
}

func TestResolvePlace(t *testing.T) {
	t.Parallel()

	var gotPath, gotTypes, gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTypes = r.URL.Query().Get("types")
		gotToken = r.URL.Query().Get("access_token")
		_, _ = w.Write([]byte(bassendean))
	})

	place, err := client.ResolvePlace(context.Background(), -31.9, 115.95)
	if err != nil {
		t.Fatalf("ResolvePlace returned error: %v", err)
	}

	if gotPath != "/geocoding/v5/mapbox.places/115.95,-31.9.json" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotTypes != "locality,place,region" || gotToken != "pk.test" {
		t.Fatalf("unexpected query: types=%s token=%s", gotTypes, gotToken)
	}

	if place == nil {
		t.Fatalf("expected a place")
	}
	if place.Locality != "Bassendean" || place.State != "Western Australia" || place.Wikidata != "Q2887395" {
		t.Fatalf("unexpected place: %+v", place)
	}
	if place.Place != "Bassendean, Western Australia, Australia" {
		t.Fatalf("unexpected place name: %s", place.Place)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	region := feature{PlaceType: []string{"region"}, Text: "Washington"}
	city := feature{PlaceType: []string{"place"}, Text: "Cle Elum", PlaceName: "Cle Elum, Washington, United States"}

	tests := []struct {
		name     string
		features []feature
		want     string
	}{
		{name: "no features", features: nil, want: ""},
		{name: "no region", features: []feature{city}, want: ""},
		{name: "region only", features: []feature{region}, want: ""},
		{name: "place falls back", features: []feature{city, region}, want: "Cle Elum"},
	}

	for _, tt := range tests {
		got := parse(response{Features: tt.features})
		if tt.want == "" {
			if got != nil {
				t.Fatalf("%s: expected nil, got %+v", tt.name, got)
			}
			continue
		}
		if got == nil || got.Locality != tt.want || got.State != "Washington" {
			t.Fatalf("%s: unexpected place %+v", tt.name, got)
		}
	}
}

func TestResolvePlaceStatusError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Authorized - Invalid Token"}`, http.StatusUnauthorized)
	})

	_, err := client.ResolvePlace(context.Background(), 1, 2)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode() != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode())
	}
}

func TestResolvePlaceEmptyResponse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection"}`))
	})

	place, err := client.ResolvePlace(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("ResolvePlace returned error: %v", err)
	}
	if place != nil {
		t.Fatalf("expected no place, got %+v", place)
	}
}
