package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"citysafe/pkg/live"
	"citysafe/pkg/logger"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
	"citysafe/pkg/validation"
)

const maxMessageBody = 1 << 20

// RegisterMessages mounts the channel message endpoints.
func RegisterMessages(r *mux.Router, hub *live.Hub) {
	r.HandleFunc("/channels/{city}/messages", postMessageHandler(hub)).Methods("POST")
	r.HandleFunc("/channels/{city}/messages", listMessagesHandler).Methods("GET")
	r.HandleFunc("/messages/{id}", getMessageHandler).Methods("GET")
	r.HandleFunc("/messages/{id}", deleteMessageHandler(hub)).Methods("DELETE")
	r.HandleFunc("/messages/{id}/reads", markReadHandler(hub)).Methods("POST")
	r.HandleFunc("/messages/{id}/reactions", addReactionHandler(hub)).Methods("POST")
	r.HandleFunc("/messages/{id}/reactions", removeReactionHandler(hub)).Methods("DELETE")
}

// postMessageHandler appends a message to a city channel.
//
// @Summary Post message
// @Tags chat
// @Accept json
// @Produce json
// @Param city path string true "City channel"
// @Success 201 {object} models.Message
// @Router /v1/channels/{city}/messages [post]
func postMessageHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := mux.Vars(r)["city"]
		if city == "" {
			utils.JSONError(w, http.StatusBadRequest, "missing city")
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBody))
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "read error")
			return
		}
		if err := validation.ValidateJSON(raw); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if m.Kind == "" {
			m.Kind = models.KindText
		}
		if !models.ValidKind(m.Kind) {
			utils.JSONError(w, http.StatusBadRequest, "invalid kind")
			return
		}
		if m.Kind == models.KindText && m.Body == "" {
			utils.JSONError(w, http.StatusBadRequest, "empty body")
			return
		}
		if m.Kind != models.KindText && m.Attachment == nil {
			utils.JSONError(w, http.StatusBadRequest, "missing attachment")
			return
		}
		author := callerID(r)
		if author == "" && isBackendKey(r) {
			author = m.Author
		}
		if author == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing author identity")
			return
		}
		m.ID = utils.GenID()
		m.City = city
		m.Author = author
		m.TS = time.Now().UnixNano()
		m.Deleted = false
		m.ReadBy = nil
		m.Reactions = nil
		if err := store.SaveMessage(m); err != nil {
			logger.Error("message_save_failed", "err", err, "city", city)
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		hub.PublishJSON(live.ChatTopic(city), "message", m)
		utils.JSONWrite(w, http.StatusCreated, m)
	}
}

// listMessagesHandler returns channel messages newer than the `after`
// timestamp, oldest first.
//
// @Summary List messages
// @Tags chat
// @Produce json
// @Param city path string true "City channel"
// @Param after query int false "Exclusive lower bound (unix nanos)"
// @Param limit query int false "Max messages"
// @Success 200 {array} models.Message
// @Router /v1/channels/{city}/messages [get]
func listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	after := queryInt64(r, "after", 0)
	limit := queryInt(r, "limit", 100)
	msgs, err := store.ListMessages(city, after, limit)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, msgs)
}

func getMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := store.GetLatestMessage(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "not found")
		return
	}
	utils.JSONWrite(w, http.StatusOK, m)
}

// deleteMessageHandler soft-deletes a message. Only the author or a
// staff caller may delete; the tombstone keeps the slot visible so
// clients render "message deleted".
func deleteMessageHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		m, err := store.GetLatestMessage(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		if m.Author != callerID(r) && !isStaff(r) {
			utils.JSONError(w, http.StatusForbidden, "not the author")
			return
		}
		m.Deleted = true
		m.DeletedTS = time.Now().UTC().UnixNano()
		m.Body = ""
		m.Attachment = nil
		if err := store.SaveMessage(m); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		hub.PublishJSON(live.ChatTopic(m.City), "message_deleted", map[string]string{"id": m.ID})
		utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted", "id": m.ID})
	}
}

// markReadHandler records a read receipt for the caller. Idempotent;
// repeat reads return 200 without a new version.
func markReadHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		reader := callerID(r)
		if reader == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		m, err := store.GetLatestMessage(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		if !m.MarkRead(reader) {
			utils.JSONWrite(w, http.StatusOK, map[string]any{"id": m.ID, "read_by": m.ReadBy})
			return
		}
		if err := store.SaveMessage(m); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		hub.PublishJSON(live.ChatTopic(m.City), "read", map[string]any{"id": m.ID, "reader": reader})
		utils.JSONWrite(w, http.StatusOK, map[string]any{"id": m.ID, "read_by": m.ReadBy})
	}
}

func addReactionHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		uid := callerID(r)
		if uid == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var body struct {
			Reaction string `json:"reaction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reaction == "" {
			utils.JSONError(w, http.StatusBadRequest, "missing reaction")
			return
		}
		m, err := store.GetLatestMessage(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		if m.Reactions == nil {
			m.Reactions = map[string]string{}
		}
		m.Reactions[uid] = body.Reaction
		if err := store.SaveMessage(m); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		hub.PublishJSON(live.ChatTopic(m.City), "reaction", map[string]any{"id": m.ID, "user": uid, "reaction": body.Reaction})
		utils.JSONWrite(w, http.StatusOK, m)
	}
}

func removeReactionHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		uid := callerID(r)
		if uid == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		m, err := store.GetLatestMessage(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		if _, ok := m.Reactions[uid]; !ok {
			utils.JSONWrite(w, http.StatusOK, m)
			return
		}
		delete(m.Reactions, uid)
		if err := store.SaveMessage(m); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		hub.PublishJSON(live.ChatTopic(m.City), "reaction_removed", map[string]any{"id": m.ID, "user": uid})
		utils.JSONWrite(w, http.StatusOK, m)
	}
}
