package migrations

import (
	"time"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(SeedTrip, func(app core.App) error {
		trip, err := app.FindFirstRecordByFilter("trips", "name != ''")
		if err != nil {
			return nil
		}
		return app.Delete(trip)
	})
}

// SeedTrip creates the single family trip the app is built around, with one
// day record per travel day.
func SeedTrip(app core.App) error {
	tripsCollection, err := app.FindCollectionByNameOrId("trips")
	if err != nil {
		return err
	}

	start := time.Date(2026, time.May, 13, 0, 0, 0, 0, time.UTC)

	trip := core.NewRecord(tripsCollection)
	trip.Set("name", "West Coast Family Road Trip")
	trip.Set("description", "Family road trip from Phoenix through the Grand Canyon, Las Vegas, Death Valley, San Francisco and LA.")
	trip.Set("startDate", start)
	trip.Set("endDate", start.AddDate(0, 0, 7))
	if err := app.Save(trip); err != nil {
		return err
	}

	daysCollection, err := app.FindCollectionByNameOrId("days")
	if err != nil {
		return err
	}

	titles := []string{
		"Detroit to Phoenix",
		"Phoenix area",
		"Grand Canyon",
		"Grand Canyon to Las Vegas",
		"Death Valley",
		"San Francisco",
		"Santa Monica / LA area",
		"Joshua Tree and flight home",
	}
	for i, title := range titles {
		day := core.NewRecord(daysCollection)
		day.Set("trip", trip.Id)
		day.Set("dayNumber", i+1)
		day.Set("date", start.AddDate(0, 0, i))
		day.Set("title", title)
		if err := app.Save(day); err != nil {
			return err
		}
	}
	return nil
}
