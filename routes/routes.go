package routes

import (
	"net/http"
	"os"
	"time"

	"backend/guide"
	"backend/trips"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
)

// Register mounts all custom routes. Every route requires an authenticated
// user and operates on the single configured trip, injected as "trip" on the
// request event.
func Register(se *core.ServeEvent) error {
	engine := guide.NewEngine(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))

	lookup, err := trips.NewPlaceLookup(nominatimFetcher(se.App), 15*time.Minute)
	if err != nil {
		return err
	}

	g := se.Router.Group("/api")
	g.Bind(apis.RequireAuth("users"), loadActiveTrip())

	g.POST("/chat", Chat(engine))
	g.GET("/chat", ChatHistory)
	g.POST("/chat/action", ChatAction)
	g.POST("/chat/{messageId}/share", ShareChatMessage)

	g.GET("/day/{dayNumber}/activities", ListDayActivities)
	g.GET("/trip/budget", TripBudget)
	g.GET("/trip/calendar", TripCalendar)
	g.GET("/places/search", SearchPlaces(lookup))

	return nil
}

func loadActiveTrip() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "loadActiveTrip",
		Func: func(e *core.RequestEvent) error {
			trip, err := e.App.FindFirstRecordByFilter("trips", "id != ''")
			if err != nil {
				return e.JSON(http.StatusNotFound, map[string]string{"error": "no trip configured"})
			}
			e.Set("trip", trip)
			return e.Next()
		},
	}
}

func requestTrip(e *core.RequestEvent) (*core.Record, bool) {
	trip, ok := e.Get("trip").(*core.Record)
	return trip, ok
}
