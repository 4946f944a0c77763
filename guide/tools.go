package guide

import (
	"github.com/openai/openai-go/v2"
)

// ToolBudgetSummary is the only read-only tool; it is answered within the same
// turn instead of producing a pending action.
const ToolBudgetSummary = "get_budget_summary"

var activityTypes = []string{
	"flight", "drive", "hotel", "restaurant", "activity",
	"sightseeing", "shopping", "rest", "other",
}

var activityStatuses = []string{"confirmed", "tentative", "tbd"}

var checklistTypes = []string{"packing", "todo", "shopping"}

var expenseCategories = []string{
	"accommodation", "food", "transport", "activities",
	"fuel", "parking", "shopping", "tips", "other",
}

// Tools is the fixed catalog of callable actions handed unmodified to every
// completion call. Each write tool must have a matching ActionKind, Action
// payload variant, apply case and proposal sentence.
func Tools() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionCreateActivity),
			Description: openai.String(
				"Add an activity to a specific day of the trip. Use when the user asks to add a restaurant, attraction, activity, hotel, or any stop to their itinerary."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"day_number":    numberProp("The day number to add the activity to"),
					"title":         stringProp("Name of the activity or place"),
					"type":          enumProp("Type of activity", activityTypes),
					"start_time":    stringProp("Suggested start time in HH:MM format (24h), optional"),
					"location_name": stringProp("Name or address of the location, optional"),
					"description":   stringProp("Brief description of the activity, optional"),
					"cost_estimate": numberProp("Estimated cost in USD, optional"),
				},
				"required": []string{"day_number", "title", "type"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionAddPackingItem),
			Description: openai.String(
				"Add an item to a packing list, to-do list, or shopping list. Use when the user asks to add something to pack, buy, or remember."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"checklist_type": enumProp("Which list to add the item to", checklistTypes),
					"label":          stringProp("The item to add"),
				},
				"required": []string{"checklist_type", "label"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionSuggestItineraryChange),
			Description: openai.String(
				"Suggest a change to the existing itinerary, like reordering activities or swapping days. Use when the user asks about rearranging their plan."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"day_number":      numberProp("The day number this suggestion applies to"),
					"suggestion_text": stringProp("A clear description of the suggested change"),
				},
				"required": []string{"day_number", "suggestion_text"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionReplaceActivity),
			Description: openai.String(
				"Replace an existing activity on a day with a different one, keeping its place in the schedule. Use when the user wants to swap one stop for another."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"day_number":         numberProp("The day number the activity is on"),
					"old_activity_title": stringProp("Title of the activity to replace, as shown in the itinerary"),
					"title":              stringProp("Name of the replacement activity"),
					"type":               enumProp("Type of the replacement activity", activityTypes),
					"start_time":         stringProp("Suggested start time in HH:MM format (24h), optional"),
					"location_name":      stringProp("Name or address of the location, optional"),
					"description":        stringProp("Brief description, optional"),
					"cost_estimate":      numberProp("Estimated cost in USD, optional"),
				},
				"required": []string{"day_number", "old_activity_title", "title", "type"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionDeleteActivity),
			Description: openai.String(
				"Remove an activity from a day of the itinerary. Use when the user asks to drop, cancel, or delete a planned stop."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"day_number":     numberProp("The day number the activity is on"),
					"activity_title": stringProp("Title of the activity to remove, as shown in the itinerary"),
				},
				"required": []string{"day_number", "activity_title"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionUpdateActivity),
			Description: openai.String(
				"Change details of an existing activity (time, location, status, cost, title). Only include the fields that should change."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"day_number":     numberProp("The day number the activity is on"),
					"activity_title": stringProp("Title of the activity to update, as shown in the itinerary"),
					"title":          stringProp("New title, optional"),
					"type":           enumProp("New type, optional", activityTypes),
					"status":         enumProp("New status, optional", activityStatuses),
					"start_time":     stringProp("New start time in HH:MM format (24h), optional"),
					"location_name":  stringProp("New location name or address, optional"),
					"description":    stringProp("New description, optional"),
					"cost_estimate":  numberProp("New estimated cost in USD, optional"),
				},
				"required": []string{"day_number", "activity_title"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionLogExpense),
			Description: openai.String(
				"Log a trip expense for splitting. Use when the user mentions having paid for something, like gas, a meal, or tickets."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"title":        stringProp("Short label for the expense"),
					"amount":       numberProp("Total amount paid in USD"),
					"category":     enumProp("Expense category", expenseCategories),
					"paid_by_name": stringProp("Name of the family member who paid, optional; defaults to the current user"),
					"day_number":   numberProp("Day of the trip the expense belongs to, optional"),
					"notes":        stringProp("Extra detail, optional"),
				},
				"required": []string{"title", "amount", "category"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: string(ActionRecordPayment),
			Description: openai.String(
				"Record a settling-up payment between two family members. Use when the user says someone paid someone back."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"from_name": stringProp("Name of the member who sent the money"),
					"to_name":   stringProp("Name of the member who received the money"),
					"amount":    numberProp("Amount paid in USD"),
					"method":    stringProp("Payment method like venmo, cash, or zelle, optional"),
					"notes":     stringProp("Extra detail, optional"),
				},
				"required": []string{"from_name", "to_name", "amount"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name: ToolBudgetSummary,
			Description: openai.String(
				"Look up the group's current spending: total, expense count, and recent expenses. Use when the user asks how much has been spent or what things have cost so far."),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		}),
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func enumProp(description string, values []string) map[string]any {
	return map[string]any{"type": "string", "enum": values, "description": description}
}
