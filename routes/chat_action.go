package routes

import (
	"errors"
	"net/http"

	"backend/guide"

	"github.com/pocketbase/pocketbase/core"
)

type chatActionRequest struct {
	MessageID string `json:"messageId"`
	Action    string `json:"action"`
}

// ChatAction approves or dismisses a pending guide action on one of the
// caller's chat messages.
func ChatAction(e *core.RequestEvent) error {
	var req chatActionRequest
	if err := e.BindBody(&req); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.MessageID == "" || (req.Action != "approve" && req.Action != "dismiss") {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	trip, ok := requestTrip(e)
	if !ok {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "trip context is missing"})
	}

	result, err := guide.Decide(e.App, trip, e.Auth.Id, req.MessageID, req.Action)
	if err != nil {
		var reqErr *guide.RequestError
		if errors.As(err, &reqErr) {
			return e.JSON(reqErr.Code, map[string]string{"error": reqErr.Message})
		}
		e.App.Logger().Error("guide action resolution failed", "error", err, "messageId", req.MessageID)
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to apply action"})
	}

	response := map[string]any{"ok": true, "status": result.Status}
	if result.ResultID != "" {
		response["resultId"] = result.ResultID
	}
	return e.JSON(http.StatusOK, response)
}
