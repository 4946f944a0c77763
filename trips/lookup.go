package trips

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ringsaturn/tzf"
)

// Place is a normalized external lookup result.
type Place struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
}

// PlaceFetcher performs the actual upstream search.
type PlaceFetcher func(ctx context.Context, query string) ([]Place, error)

// PlaceLookup memoizes external place searches behind an explicit TTL cache
// and annotates results with the timezone at their coordinates. Results are
// advisory display data only; nothing in the planner's correctness depends on
// them.
type PlaceLookup struct {
	fetch  PlaceFetcher
	cache  *gocache.Cache
	finder tzf.F
}

func NewPlaceLookup(fetch PlaceFetcher, ttl time.Duration) (*PlaceLookup, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("init timezone finder: %w", err)
	}
	return &PlaceLookup{
		fetch:  fetch,
		cache:  gocache.New(ttl, 2*ttl),
		finder: finder,
	}, nil
}

func (l *PlaceLookup) Search(ctx context.Context, query string) ([]Place, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return nil, nil
	}

	if cached, ok := l.cache.Get(key); ok {
		return cached.([]Place), nil
	}

	places, err := l.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range places {
		if places[i].Latitude != 0 || places[i].Longitude != 0 {
			places[i].Timezone = l.finder.GetTimezoneName(places[i].Longitude, places[i].Latitude)
		}
	}

	l.cache.Set(key, places, gocache.DefaultExpiration)
	return places, nil
}
