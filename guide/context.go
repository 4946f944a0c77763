package guide

import (
	"fmt"
	"sort"
	"strings"

	"backend/trips"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/samber/lo"
)

type ActivitySnapshot struct {
	Title     string
	StartTime string
	Location  string
	Type      string
	Status    string
	Cost      float64
}

type DaySnapshot struct {
	DayNumber  int
	Date       string
	Title      string
	Activities []ActivitySnapshot
}

type SharedProposalSnapshot struct {
	Summary   string
	Status    string
	Reactions []string
}

// ContextBlocks assembles the instruction blocks appended to the system prompt
// for a turn: itinerary, budget, member roster, and the user's own shared
// proposals with the feedback they received. Empty blocks are omitted.
func ContextBlocks(app core.App, trip *core.Record, userID string) ([]string, error) {
	var blocks []string

	days, err := LoadItinerary(app, trip)
	if err != nil {
		return nil, err
	}
	if block := RenderItinerary(days); block != "" {
		blocks = append(blocks, block)
	}

	budget, err := trips.SummarizeBudget(app, trip)
	if err != nil {
		return nil, err
	}
	if block := RenderBudget(budget); block != "" {
		blocks = append(blocks, block)
	}

	roster, err := loadRoster(app, trip)
	if err != nil {
		return nil, err
	}
	if block := RenderRoster(roster); block != "" {
		blocks = append(blocks, block)
	}

	shared, err := loadSharedProposals(app, trip, userID)
	if err != nil {
		return nil, err
	}
	if block := RenderSharedProposals(shared); block != "" {
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// LoadItinerary reads all days ordered by day number, each with its activities
// in sort order. Candidates are always read fresh, never cached from an
// earlier turn.
func LoadItinerary(app core.App, trip *core.Record) ([]DaySnapshot, error) {
	dayRecords, err := app.FindAllRecords("days", dbx.NewExp("trip = {:tripId}", dbx.Params{"tripId": trip.Id}))
	if err != nil {
		return nil, err
	}

	sort.Slice(dayRecords, func(i, j int) bool {
		return dayRecords[i].GetInt("dayNumber") < dayRecords[j].GetInt("dayNumber")
	})

	days := make([]DaySnapshot, 0, len(dayRecords))
	for _, dayRecord := range dayRecords {
		activities, err := DayActivities(app, dayRecord)
		if err != nil {
			return nil, err
		}

		day := DaySnapshot{
			DayNumber: dayRecord.GetInt("dayNumber"),
			Date:      dayRecord.GetDateTime("date").Time().Format("2006-01-02"),
			Title:     dayRecord.GetString("title"),
		}
		for _, a := range activities {
			day.Activities = append(day.Activities, ActivitySnapshot{
				Title:     a.GetString("title"),
				StartTime: a.GetString("startTime"),
				Location:  a.GetString("locationName"),
				Type:      a.GetString("type"),
				Status:    a.GetString("status"),
				Cost:      a.GetFloat("costEstimate"),
			})
		}
		days = append(days, day)
	}

	return days, nil
}

// DayActivities returns a day's activity records ordered by sort position.
func DayActivities(app core.App, day *core.Record) ([]*core.Record, error) {
	records, err := app.FindAllRecords("activities", dbx.NewExp("day = {:dayId}", dbx.Params{"dayId": day.Id}))
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].GetInt("sortOrder") < records[j].GetInt("sortOrder")
	})
	return records, nil
}

func RenderItinerary(days []DaySnapshot) string {
	if len(days) == 0 {
		return ""
	}

	lines := []string{"Here is their current itinerary:"}
	for _, day := range days {
		title := ""
		if day.Title != "" {
			title = " - " + day.Title
		}
		lines = append(lines, fmt.Sprintf("\nDay %d (%s)%s:", day.DayNumber, day.Date, title))
		if len(day.Activities) == 0 {
			lines = append(lines, "  (no activities planned yet)")
			continue
		}
		for _, a := range day.Activities {
			entry := "  - " + a.Title
			if a.StartTime != "" {
				entry += " at " + a.StartTime
			}
			if a.Location != "" {
				entry += " @ " + a.Location
			}
			if a.Status != "" && a.Status != "confirmed" {
				entry += fmt.Sprintf(" [%s]", a.Status)
			}
			if a.Cost > 0 {
				entry += fmt.Sprintf(" (~%s)", trips.FormatAmount(a.Cost, "USD"))
			}
			lines = append(lines, entry)
		}
	}
	return strings.Join(lines, "\n")
}

func RenderBudget(budget *trips.BudgetSummary) string {
	if budget == nil || budget.Count == 0 {
		return ""
	}

	lines := []string{fmt.Sprintf(
		"Group spending so far: %s across %d expenses. The %d most recent (newest first):",
		trips.FormatAmount(budget.Total, budget.Currency), budget.Count, len(budget.Recent))}
	for _, e := range budget.Recent {
		entry := fmt.Sprintf("  - %s: %s (%s)", e.Title, trips.FormatAmount(e.Amount, budget.Currency), e.Category)
		if e.PaidBy != "" {
			entry += " paid by " + e.PaidBy
		}
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n")
}

func loadRoster(app core.App, trip *core.Record) ([]string, error) {
	members, err := app.FindAllRecords("trip_members", dbx.NewExp("trip = {:tripId}", dbx.Params{"tripId": trip.Id}))
	if err != nil {
		return nil, err
	}
	names := lo.Map(members, func(m *core.Record, _ int) string { return m.GetString("displayName") })
	sort.Strings(names)
	return names, nil
}

func RenderRoster(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "Trip members (use these names when an action refers to a person): " + strings.Join(names, ", ")
}

func loadSharedProposals(app core.App, trip *core.Record, userID string) ([]SharedProposalSnapshot, error) {
	shares, err := app.FindRecordsByFilter(
		"group_messages",
		"trip = {:trip} && sharedFromMessage != ''",
		"-created", 20, 0,
		dbx.Params{"trip": trip.Id},
	)
	if err != nil {
		return nil, err
	}

	var snapshots []SharedProposalSnapshot
	for _, share := range shares {
		origin, err := app.FindRecordById("chat_messages", share.GetString("sharedFromMessage"))
		if err != nil || origin.GetString("user") != userID {
			continue
		}

		var action Action
		if err := share.UnmarshalJSONField("sharedActionMetadata", &action); err != nil {
			continue
		}

		snapshot := SharedProposalSnapshot{
			Summary: share.GetString("content"),
			Status:  string(action.Status),
		}
		if snapshot.Summary == "" {
			snapshot.Summary = action.ProposalText()
		}

		reactions, err := app.FindAllRecords("message_reactions",
			dbx.NewExp("message = {:messageId}", dbx.Params{"messageId": share.Id}))
		if err == nil {
			for _, reaction := range reactions {
				name := reactorName(app, trip, reaction.GetString("user"))
				snapshot.Reactions = append(snapshot.Reactions, strings.TrimSpace(reaction.GetString("emoji")+" "+name))
			}
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func reactorName(app core.App, trip *core.Record, userID string) string {
	member, err := app.FindFirstRecordByFilter(
		"trip_members", "trip = {:trip} && user = {:user}",
		dbx.Params{"trip": trip.Id, "user": userID},
	)
	if err != nil {
		return ""
	}
	return member.GetString("displayName")
}

func RenderSharedProposals(shared []SharedProposalSnapshot) string {
	if len(shared) == 0 {
		return ""
	}

	lines := []string{"Feedback on proposals this user previously shared with the group:"}
	for _, s := range shared {
		entry := fmt.Sprintf("  - %q [%s]", s.Summary, s.Status)
		if len(s.Reactions) > 0 {
			entry += " reactions: " + strings.Join(s.Reactions, ", ")
		}
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n")
}
