package guide

import (
	"encoding/json"
	"testing"

	"backend/migrations"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/pocketbase/pocketbase/tools/types"
)

// setupTestApp boots a throwaway app with the schema applied and the trip
// seeded.
func setupTestApp(t *testing.T) (*tests.TestApp, *core.Record) {
	t.Helper()

	app, err := tests.NewTestApp()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(app.Cleanup)

	if _, err := app.FindCollectionByNameOrId("trips"); err != nil {
		if err := migrations.InitCollections(app); err != nil {
			t.Fatal(err)
		}
	}
	trip, err := app.FindFirstRecordByFilter("trips", "id != ''")
	if err != nil {
		if err := migrations.SeedTrip(app); err != nil {
			t.Fatal(err)
		}
		trip, err = app.FindFirstRecordByFilter("trips", "id != ''")
		if err != nil {
			t.Fatal(err)
		}
	}
	return app, trip
}

func seedUser(t *testing.T, app core.App, email string) *core.Record {
	t.Helper()

	collection, err := app.FindCollectionByNameOrId("users")
	if err != nil {
		t.Fatal(err)
	}
	user := core.NewRecord(collection)
	user.Set("email", email)
	user.Set("password", "test-password-123")
	if err := app.Save(user); err != nil {
		t.Fatal(err)
	}
	return user
}

func seedMember(t *testing.T, app core.App, trip *core.Record, userID, displayName string) *core.Record {
	t.Helper()

	collection, err := app.FindCollectionByNameOrId("trip_members")
	if err != nil {
		t.Fatal(err)
	}
	member := core.NewRecord(collection)
	member.Set("trip", trip.Id)
	member.Set("displayName", displayName)
	if userID != "" {
		member.Set("user", userID)
	}
	if err := app.Save(member); err != nil {
		t.Fatal(err)
	}
	return member
}

func dayByNumber(t *testing.T, app core.App, trip *core.Record, dayNumber int) *core.Record {
	t.Helper()

	day, err := app.FindFirstRecordByFilter(
		"days", "trip = {:trip} && dayNumber = {:dayNumber}",
		dbx.Params{"trip": trip.Id, "dayNumber": dayNumber},
	)
	if err != nil {
		t.Fatalf("day %d not seeded: %v", dayNumber, err)
	}
	return day
}

func seedActivity(t *testing.T, app core.App, trip *core.Record, dayNumber int, title string, sortOrder int) *core.Record {
	t.Helper()

	day := dayByNumber(t, app, trip, dayNumber)
	collection, err := app.FindCollectionByNameOrId("activities")
	if err != nil {
		t.Fatal(err)
	}
	activity := core.NewRecord(collection)
	activity.Set("trip", trip.Id)
	activity.Set("day", day.Id)
	activity.Set("title", title)
	activity.Set("type", "activity")
	activity.Set("status", "confirmed")
	activity.Set("sortOrder", sortOrder)
	if err := app.Save(activity); err != nil {
		t.Fatal(err)
	}
	return activity
}

// seedActionMessage persists an assistant chat message carrying the given
// action, the way a completed tool-call turn would.
func seedActionMessage(t *testing.T, app core.App, trip *core.Record, userID string, action *Action) *core.Record {
	t.Helper()

	collection, err := app.FindCollectionByNameOrId("chat_messages")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(action)
	if err != nil {
		t.Fatal(err)
	}
	message := core.NewRecord(collection)
	message.Set("trip", trip.Id)
	message.Set("user", userID)
	message.Set("role", "assistant")
	message.Set("content", action.ProposalText())
	message.Set("metadata", types.JSONRaw(raw))
	if err := app.Save(message); err != nil {
		t.Fatal(err)
	}
	return message
}

func seedSharedCopy(t *testing.T, app core.App, trip *core.Record, userID string, message *core.Record) *core.Record {
	t.Helper()

	collection, err := app.FindCollectionByNameOrId("group_messages")
	if err != nil {
		t.Fatal(err)
	}
	share := core.NewRecord(collection)
	share.Set("trip", trip.Id)
	share.Set("user", userID)
	share.Set("content", message.GetString("content"))
	share.Set("sharedFromMessage", message.Id)
	share.Set("sharedActionMetadata", types.JSONRaw(message.GetString("metadata")))
	if err := app.Save(share); err != nil {
		t.Fatal(err)
	}
	return share
}

func messageAction(t *testing.T, app core.App, messageID string) *Action {
	t.Helper()

	message, err := app.FindRecordById("chat_messages", messageID)
	if err != nil {
		t.Fatal(err)
	}
	var action Action
	if err := json.Unmarshal([]byte(message.GetString("metadata")), &action); err != nil {
		t.Fatal(err)
	}
	return &action
}
