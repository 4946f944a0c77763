package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"backend/guide"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

type chatRequest struct {
	Message string `json:"message"`
}

// Chat runs one guide conversation turn and streams the reply as
// text/event-stream frames {delta?, action?, error?}, terminated by a literal
// [DONE] sentinel.
func Chat(engine *guide.Engine) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" {
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "OPENAI_API_KEY is not configured on the server",
			})
		}

		var req chatRequest
		if err := e.BindBody(&req); err != nil {
			return e.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid request body",
			})
		}

		message, ok := guide.NormalizeMessage(req.Message)
		if !ok {
			return e.JSON(http.StatusBadRequest, map[string]string{
				"error": "message is required",
			})
		}

		trip, ok := requestTrip(e)
		if !ok {
			return e.JSON(http.StatusBadRequest, map[string]string{
				"error": "trip context is missing",
			})
		}

		e.Response.Header().Set("Content-Type", "text/event-stream")
		e.Response.Header().Set("Cache-Control", "no-cache")
		e.Response.Header().Set("Connection", "keep-alive")
		rc := http.NewResponseController(e.Response)

		sent := false
		emit := func(event guide.StreamEvent) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(e.Response, "data: %s\n\n", payload); err != nil {
				return err
			}
			sent = true
			return rc.Flush()
		}

		err := engine.RunTurn(e.Request.Context(), e.App, trip, e.Auth, message, emit)
		if err != nil {
			e.App.Logger().Error("guide turn failed", "error", err, "tripId", trip.Id)
			if !sent {
				return e.JSON(http.StatusInternalServerError, map[string]string{
					"error": "assistant request failed",
				})
			}
			return nil
		}

		fmt.Fprint(e.Response, "data: [DONE]\n\n")
		_ = rc.Flush()
		return nil
	}
}

type chatMessageView struct {
	Id       string          `json:"id"`
	Role     string          `json:"role"`
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Created  string          `json:"created"`
}

// ChatHistory returns the caller's recent guide conversation, oldest first.
func ChatHistory(e *core.RequestEvent) error {
	trip, ok := requestTrip(e)
	if !ok {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "trip context is missing"})
	}

	records, err := e.App.FindRecordsByFilter(
		"chat_messages",
		"trip = {:trip} && user = {:user}",
		"-created", 50, 0,
		dbx.Params{"trip": trip.Id, "user": e.Auth.Id},
	)
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "unable to load chat history"})
	}

	views := make([]chatMessageView, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		view := chatMessageView{
			Id:      record.Id,
			Role:    record.GetString("role"),
			Content: record.GetString("content"),
			Created: record.GetDateTime("created").String(),
		}
		if raw := record.GetString("metadata"); raw != "" && raw != "null" {
			view.Metadata = json.RawMessage(raw)
		}
		views = append(views, view)
	}

	return e.JSON(http.StatusOK, views)
}
