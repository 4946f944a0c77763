package trips

import (
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// ExportTripCalendar renders the trip's itinerary as an iCalendar document.
// Activities without a start time become all-day entries on their day's date.
func ExportTripCalendar(app core.App, trip *core.Record) (string, error) {
	days, err := app.FindAllRecords("days", dbx.NewExp("trip = {:tripId}", dbx.Params{"tripId": trip.Id}))
	if err != nil {
		return "", err
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].GetInt("dayNumber") < days[j].GetInt("dayNumber")
	})

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//" + trip.GetString("name") + "//Trip Planner//EN")

	for _, day := range days {
		activities, err := app.FindAllRecords("activities", dbx.NewExp("day = {:dayId}", dbx.Params{"dayId": day.Id}))
		if err != nil {
			return "", err
		}
		sort.Slice(activities, func(i, j int) bool {
			return activities[i].GetInt("sortOrder") < activities[j].GetInt("sortOrder")
		})

		date := day.GetDateTime("date").Time()
		for _, activity := range activities {
			event := cal.AddEvent(fmt.Sprintf("%s@trip-planner", activity.Id))
			event.SetCreatedTime(activity.GetDateTime("created").Time())
			event.SetSummary(activity.GetString("title"))

			if location := activity.GetString("locationName"); location != "" {
				event.SetLocation(location)
			}
			if description := activity.GetString("description"); description != "" {
				event.SetDescription(description)
			}

			start := activityStart(date, activity.GetString("startTime"))
			if activity.GetString("startTime") == "" {
				event.SetAllDayStartAt(start)
				event.SetAllDayEndAt(start.AddDate(0, 0, 1))
				continue
			}
			event.SetStartAt(start)
			event.SetEndAt(start.Add(time.Hour))
		}
	}

	return cal.Serialize(), nil
}

func activityStart(date time.Time, clock string) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if clock == "" {
		return day
	}
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
}
