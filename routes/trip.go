package routes

import (
	"net/http"

	"backend/trips"

	"github.com/pocketbase/pocketbase/core"
)

// TripBudget returns the aggregate spending summary for the trip.
func TripBudget(e *core.RequestEvent) error {
	trip, ok := requestTrip(e)
	if !ok {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "trip context is missing"})
	}

	summary, err := trips.SummarizeBudget(e.App, trip)
	if err != nil {
		e.App.Logger().Error("budget summary failed", "error", err, "tripId", trip.Id)
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "unable to load budget"})
	}
	return e.JSON(http.StatusOK, summary)
}

// TripCalendar exports the itinerary as an iCalendar document.
func TripCalendar(e *core.RequestEvent) error {
	trip, ok := requestTrip(e)
	if !ok {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "trip context is missing"})
	}

	document, err := trips.ExportTripCalendar(e.App, trip)
	if err != nil {
		e.App.Logger().Error("calendar export failed", "error", err, "tripId", trip.Id)
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "unable to export calendar"})
	}
	return e.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(document))
}
