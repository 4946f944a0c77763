package routes

import (
	"net/http"
	"strconv"

	"backend/guide"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

type activityView struct {
	Id           string  `json:"id"`
	Title        string  `json:"title"`
	Type         string  `json:"type,omitempty"`
	Status       string  `json:"status,omitempty"`
	StartTime    string  `json:"startTime,omitempty"`
	LocationName string  `json:"locationName,omitempty"`
	Description  string  `json:"description,omitempty"`
	CostEstimate float64 `json:"costEstimate,omitempty"`
	SortOrder    int     `json:"sortOrder"`
	Source       string  `json:"source,omitempty"`
}

// ListDayActivities returns a day's activities in sort order.
func ListDayActivities(e *core.RequestEvent) error {
	dayNumber, err := strconv.Atoi(e.Request.PathValue("dayNumber"))
	if err != nil || dayNumber < 1 {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid day number"})
	}

	trip, ok := requestTrip(e)
	if !ok {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "trip context is missing"})
	}

	day, err := e.App.FindFirstRecordByFilter(
		"days", "trip = {:trip} && dayNumber = {:dayNumber}",
		dbx.Params{"trip": trip.Id, "dayNumber": dayNumber},
	)
	if err != nil {
		return e.JSON(http.StatusNotFound, map[string]string{"error": "day not found"})
	}

	activities, err := guide.DayActivities(e.App, day)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "unable to load activities"})
	}

	views := make([]activityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, activityView{
			Id:           activity.Id,
			Title:        activity.GetString("title"),
			Type:         activity.GetString("type"),
			Status:       activity.GetString("status"),
			StartTime:    activity.GetString("startTime"),
			LocationName: activity.GetString("locationName"),
			Description:  activity.GetString("description"),
			CostEstimate: activity.GetFloat("costEstimate"),
			SortOrder:    activity.GetInt("sortOrder"),
			Source:       activity.GetString("source"),
		})
	}

	return e.JSON(http.StatusOK, views)
}
