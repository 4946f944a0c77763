package routes

import (
	"encoding/json"
	"net/http"

	"backend/guide"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

type shareRequest struct {
	Content string `json:"content"`
}

// ShareChatMessage re-shares one of the caller's guide proposals into group
// chat: the group message carries a copy of the action metadata plus a
// back-reference to the originating chat message, which keeps the copy in sync
// with later approve/dismiss decisions.
func ShareChatMessage(e *core.RequestEvent) error {
	messageID := e.Request.PathValue("messageId")

	var req shareRequest
	if err := e.BindBody(&req); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	trip, ok := requestTrip(e)
	if !ok {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "trip context is missing"})
	}

	message, err := e.App.FindRecordById("chat_messages", messageID)
	if err != nil || message.GetString("user") != e.Auth.Id {
		return e.JSON(http.StatusNotFound, map[string]string{"error": "message not found"})
	}

	raw := message.GetString("metadata")
	if raw == "" || raw == "null" {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "message carries no action to share"})
	}
	var action guide.Action
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return e.JSON(http.StatusBadRequest, map[string]string{"error": "message carries no action to share"})
	}

	content := req.Content
	if content == "" {
		content = action.ProposalText()
	}

	collection, err := e.App.FindCollectionByNameOrId("group_messages")
	if err != nil {
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to share message"})
	}

	share := core.NewRecord(collection)
	share.Set("trip", trip.Id)
	share.Set("user", e.Auth.Id)
	share.Set("content", content)
	share.Set("sharedFromMessage", message.Id)
	share.Set("sharedActionMetadata", types.JSONRaw(raw))
	if err := e.App.Save(share); err != nil {
		e.App.Logger().Error("failed to share chat message", "error", err, "messageId", messageID)
		return e.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to share message"})
	}

	return e.JSON(http.StatusOK, map[string]any{"ok": true, "groupMessageId": share.Id})
}
