package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"backend/trips"

	"github.com/pocketbase/pocketbase/core"
)

// SearchPlaces proxies an external place search through the TTL cache. Display
// glue only; the planner core never depends on these results.
func SearchPlaces(lookup *trips.PlaceLookup) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		query := e.Request.URL.Query().Get("q")
		if query == "" {
			return e.JSON(http.StatusBadRequest, map[string]string{"error": "q parameter is required"})
		}

		places, err := lookup.Search(e.Request.Context(), query)
		if err != nil {
			e.App.Logger().Error("place search failed", "error", err, "query", query)
			return e.JSON(http.StatusBadGateway, map[string]string{"error": "place lookup failed"})
		}
		return e.JSON(http.StatusOK, places)
	}
}

type nominatimResult struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func nominatimFetcher(app core.App) trips.PlaceFetcher {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, query string) ([]trips.Place, error) {
		endpoint := "https://nominatim.openstreetmap.org/search?format=jsonv2&limit=5&q=" + url.QueryEscape(query)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "trip-planner/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("place lookup error: %s", resp.Status)
		}

		var results []nominatimResult
		if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
			return nil, err
		}

		places := make([]trips.Place, 0, len(results))
		for _, result := range results {
			name := result.Name
			if name == "" {
				name = result.DisplayName
			}
			place := trips.Place{Name: name, Address: result.DisplayName}
			if lat, err := strconv.ParseFloat(result.Lat, 64); err == nil {
				place.Latitude = lat
			}
			if lon, err := strconv.ParseFloat(result.Lon, 64); err == nil {
				place.Longitude = lon
			}
			places = append(places, place)
		}

		if len(places) == 0 {
			app.Logger().Debug("place search returned no results", "query", query)
		}
		return places, nil
	}
}
