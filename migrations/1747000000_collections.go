package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

var activityTypes = []string{
	"flight", "drive", "hotel", "restaurant", "activity",
	"sightseeing", "shopping", "rest", "other",
}

var expenseCategories = []string{
	"accommodation", "food", "transport", "activities",
	"fuel", "parking", "shopping", "tips", "other",
}

func init() {
	m.Register(InitCollections, dropCollections)
}

// InitCollections creates the app's collections. Exported so the test harness
// can apply the schema against a fresh test app.
func InitCollections(app core.App) error {
	users, err := app.FindCollectionByNameOrId("users")
	if err != nil {
		return err
	}

	authRead := types.Pointer(`@request.auth.id != ""`)

	trips := core.NewBaseCollection("trips")
	trips.ListRule = authRead
	trips.ViewRule = authRead
	trips.Fields.Add(
		&core.TextField{Name: "name", Required: true},
		&core.TextField{Name: "description"},
		&core.DateField{Name: "startDate"},
		&core.DateField{Name: "endDate"},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	if err := app.Save(trips); err != nil {
		return err
	}

	days := core.NewBaseCollection("days")
	days.ListRule = authRead
	days.ViewRule = authRead
	days.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.NumberField{Name: "dayNumber", Required: true, OnlyInt: true},
		&core.DateField{Name: "date", Required: true},
		&core.TextField{Name: "title"},
		&core.TextField{Name: "subtitle"},
		&core.TextField{Name: "notes"},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	days.AddIndex("idx_days_trip_day_number", true, "trip, dayNumber", "")
	if err := app.Save(days); err != nil {
		return err
	}

	activities := core.NewBaseCollection("activities")
	activities.ListRule = authRead
	activities.ViewRule = authRead
	activities.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, CascadeDelete: true},
		&core.RelationField{Name: "day", CollectionId: days.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.TextField{Name: "title", Required: true},
		&core.SelectField{Name: "type", Values: activityTypes, MaxSelect: 1},
		&core.SelectField{Name: "status", Values: []string{"confirmed", "tentative", "tbd"}, MaxSelect: 1},
		&core.TextField{Name: "startTime"},
		&core.TextField{Name: "endTime"},
		&core.TextField{Name: "locationName"},
		&core.TextField{Name: "locationAddress"},
		&core.TextField{Name: "description"},
		&core.NumberField{Name: "costEstimate"},
		&core.NumberField{Name: "sortOrder", OnlyInt: true},
		&core.TextField{Name: "source"},
		&core.RelationField{Name: "createdBy", CollectionId: users.Id, MaxSelect: 1},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	if err := app.Save(activities); err != nil {
		return err
	}

	members := core.NewBaseCollection("trip_members")
	members.ListRule = authRead
	members.ViewRule = authRead
	members.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1},
		&core.TextField{Name: "displayName", Required: true},
		&core.TextField{Name: "avatarColor"},
		&core.SelectField{Name: "role", Values: []string{"admin", "editor", "viewer"}, MaxSelect: 1},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(members); err != nil {
		return err
	}

	checklists := core.NewBaseCollection("checklists")
	checklists.ListRule = authRead
	checklists.ViewRule = authRead
	checklists.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.TextField{Name: "title", Required: true},
		&core.SelectField{Name: "type", Values: []string{"packing", "todo", "shopping"}, MaxSelect: 1},
		&core.NumberField{Name: "sortOrder", OnlyInt: true},
		&core.RelationField{Name: "createdBy", CollectionId: users.Id, MaxSelect: 1},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(checklists); err != nil {
		return err
	}

	items := core.NewBaseCollection("checklist_items")
	items.ListRule = authRead
	items.ViewRule = authRead
	items.Fields.Add(
		&core.RelationField{Name: "checklist", CollectionId: checklists.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.TextField{Name: "label", Required: true},
		&core.BoolField{Name: "isChecked"},
		&core.RelationField{Name: "checkedBy", CollectionId: users.Id, MaxSelect: 1},
		&core.NumberField{Name: "sortOrder", OnlyInt: true},
		&core.TextField{Name: "source"},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(items); err != nil {
		return err
	}

	chatMessages := core.NewBaseCollection("chat_messages")
	chatMessages.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1},
		&core.SelectField{Name: "role", Values: []string{"user", "assistant"}, MaxSelect: 1, Required: true},
		&core.TextField{Name: "content"},
		&core.JSONField{Name: "metadata"},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(chatMessages); err != nil {
		return err
	}

	groupMessages := core.NewBaseCollection("group_messages")
	groupMessages.ListRule = authRead
	groupMessages.ViewRule = authRead
	groupMessages.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1, Required: true},
		&core.TextField{Name: "content"},
		&core.JSONField{Name: "sharedActionMetadata"},
		&core.RelationField{Name: "sharedFromMessage", CollectionId: chatMessages.Id, MaxSelect: 1},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(groupMessages); err != nil {
		return err
	}

	reactions := core.NewBaseCollection("message_reactions")
	reactions.ListRule = authRead
	reactions.ViewRule = authRead
	reactions.Fields.Add(
		&core.RelationField{Name: "message", CollectionId: groupMessages.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1, Required: true},
		&core.TextField{Name: "emoji", Required: true},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	reactions.AddIndex("idx_reactions_message_user_emoji", true, "message, user, emoji", "")
	if err := app.Save(reactions); err != nil {
		return err
	}

	expenses := core.NewBaseCollection("expenses")
	expenses.ListRule = authRead
	expenses.ViewRule = authRead
	expenses.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.TextField{Name: "title", Required: true},
		&core.NumberField{Name: "totalAmount", Required: true},
		&core.TextField{Name: "currency"},
		&core.SelectField{Name: "category", Values: expenseCategories, MaxSelect: 1},
		&core.RelationField{Name: "paidByMember", CollectionId: members.Id, MaxSelect: 1, Required: true},
		&core.RelationField{Name: "activity", CollectionId: activities.Id, MaxSelect: 1},
		&core.NumberField{Name: "dayNumber", OnlyInt: true},
		&core.DateField{Name: "expenseDate"},
		&core.TextField{Name: "notes"},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	if err := app.Save(expenses); err != nil {
		return err
	}

	splits := core.NewBaseCollection("expense_splits")
	splits.ListRule = authRead
	splits.ViewRule = authRead
	splits.Fields.Add(
		&core.RelationField{Name: "expense", CollectionId: expenses.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "member", CollectionId: members.Id, MaxSelect: 1, Required: true},
		&core.NumberField{Name: "amount", Required: true},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(splits); err != nil {
		return err
	}

	payments := core.NewBaseCollection("expense_payments")
	payments.ListRule = authRead
	payments.ViewRule = authRead
	payments.Fields.Add(
		&core.RelationField{Name: "trip", CollectionId: trips.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "fromMember", CollectionId: members.Id, MaxSelect: 1, Required: true},
		&core.RelationField{Name: "toMember", CollectionId: members.Id, MaxSelect: 1, Required: true},
		&core.NumberField{Name: "amount", Required: true},
		&core.TextField{Name: "currency"},
		&core.TextField{Name: "method"},
		&core.TextField{Name: "notes"},
		&core.DateField{Name: "paidAt"},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	if err := app.Save(payments); err != nil {
		return err
	}

	votes := core.NewBaseCollection("votes")
	votes.ListRule = authRead
	votes.ViewRule = authRead
	votes.Fields.Add(
		&core.RelationField{Name: "activity", CollectionId: activities.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1, Required: true},
		&core.SelectField{Name: "type", Values: []string{"up", "heart", "fire", "question"}, MaxSelect: 1, Required: true},
		&core.AutodateField{Name: "created", OnCreate: true},
	)
	votes.AddIndex("idx_votes_activity_user_type", true, "activity, user, type", "")
	if err := app.Save(votes); err != nil {
		return err
	}

	comments := core.NewBaseCollection("comments")
	comments.ListRule = authRead
	comments.ViewRule = authRead
	comments.Fields.Add(
		&core.RelationField{Name: "activity", CollectionId: activities.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
		&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1},
		&core.TextField{Name: "body", Required: true},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	return app.Save(comments)
}

func dropCollections(app core.App) error {
	names := []string{
		"comments", "votes", "expense_payments", "expense_splits", "expenses",
		"message_reactions", "group_messages", "chat_messages",
		"checklist_items", "checklists", "trip_members", "activities", "days", "trips",
	}
	for _, name := range names {
		collection, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			continue
		}
		if err := app.Delete(collection); err != nil {
			return err
		}
	}
	return nil
}
