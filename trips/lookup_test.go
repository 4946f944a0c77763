package trips

import (
	"context"
	"errors"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// newTestLookup builds a PlaceLookup without the timezone finder, which takes
// seconds to initialize. Fetchers used here return zero coordinates so the
// finder is never consulted.
func newTestLookup(fetch PlaceFetcher) *PlaceLookup {
	return &PlaceLookup{
		fetch: fetch,
		cache: gocache.New(time.Minute, 2*time.Minute),
	}
}

func TestPlaceLookupCaches(t *testing.T) {
	calls := 0
	lookup := newTestLookup(func(ctx context.Context, query string) ([]Place, error) {
		calls++
		return []Place{{Name: "Grand Canyon Village"}}, nil
	})

	ctx := context.Background()
	for _, query := range []string{"grand canyon", "  Grand Canyon  ", "GRAND CANYON"} {
		places, err := lookup.Search(ctx, query)
		if err != nil {
			t.Fatal(err)
		}
		if len(places) != 1 || places[0].Name != "Grand Canyon Village" {
			t.Fatalf("unexpected result for %q: %+v", query, places)
		}
	}
	if calls != 1 {
		t.Fatalf("equivalent queries should hit the upstream once, got %d calls", calls)
	}

	if _, err := lookup.Search(ctx, "moab"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("a new query should fetch again, got %d calls", calls)
	}
}

func TestPlaceLookupEmptyQuery(t *testing.T) {
	lookup := newTestLookup(func(ctx context.Context, query string) ([]Place, error) {
		t.Fatal("empty queries must not reach the fetcher")
		return nil, nil
	})

	places, err := lookup.Search(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if places != nil {
		t.Fatalf("expected no results, got %+v", places)
	}
}

func TestPlaceLookupFetchErrorNotCached(t *testing.T) {
	calls := 0
	fail := true
	lookup := newTestLookup(func(ctx context.Context, query string) ([]Place, error) {
		calls++
		if fail {
			return nil, errors.New("upstream down")
		}
		return []Place{{Name: "Zion Lodge"}}, nil
	})

	ctx := context.Background()
	if _, err := lookup.Search(ctx, "zion"); err == nil {
		t.Fatal("expected fetch error")
	}

	fail = false
	places, err := lookup.Search(ctx, "zion")
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != 1 {
		t.Fatalf("retry after a failure should fetch fresh results, got %+v", places)
	}
	if calls != 2 {
		t.Fatalf("failures must not be cached, got %d calls", calls)
	}
}
