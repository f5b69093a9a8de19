package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/mastery"
	"github.com/calcrag/calcrag/internal/topic"
)

type learnerHandler struct {
	store    MasteryStore
	registry *topic.Registry
	logger   log.Logger
}

type markRequest struct {
	TopicIDs []string `json:"topic_ids"`
}

type masteredEntry struct {
	TopicID    string    `json:"topic_id"`
	MasteredAt time.Time `json:"mastered_at"`
}

func learnerIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func (h *learnerHandler) list(w http.ResponseWriter, r *http.Request) {
	learnerID, err := learnerIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner id must be a UUID", h.logger)
		return
	}

	records, err := h.store.List(r.Context(), learnerID)
	if err != nil {
		h.logger.Error("listing mastered topics", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	out := make([]masteredEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, masteredEntry{TopicID: rec.TopicID, MasteredAt: rec.MasteredAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"mastered": out}, h.logger)
}

func (h *learnerHandler) mark(w http.ResponseWriter, r *http.Request) {
	learnerID, err := learnerIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner id must be a UUID", h.logger)
		return
	}

	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if len(req.TopicIDs) == 0 {
		writeError(w, http.StatusBadRequest, "empty_topics", "topic_ids is required", h.logger)
		return
	}

	if err := h.store.Mark(r.Context(), learnerID, req.TopicIDs...); err != nil {
		if errors.Is(err, topic.ErrUnknownTopic) {
			writeError(w, http.StatusBadRequest, "unknown_topic", err.Error(), h.logger)
			return
		}
		h.logger.Error("marking topics mastered", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"marked": len(req.TopicIDs)}, h.logger)
}

func (h *learnerHandler) unmark(w http.ResponseWriter, r *http.Request) {
	learnerID, err := learnerIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner id must be a UUID", h.logger)
		return
	}
	topicID := r.PathValue("topic")

	if err := h.store.Unmark(r.Context(), learnerID, topicID); err != nil {
		if errors.Is(err, mastery.ErrNotMastered) {
			writeError(w, http.StatusNotFound, "not_mastered", "topic is not marked mastered: "+topicID, h.logger)
			return
		}
		h.logger.Error("unmarking topic", "learner", learnerID, "topic", topicID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *learnerHandler) reset(w http.ResponseWriter, r *http.Request) {
	learnerID, err := learnerIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner id must be a UUID", h.logger)
		return
	}

	removed, err := h.store.Reset(r.Context(), learnerID)
	if err != nil {
		h.logger.Error("resetting learner", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"removed": removed}, h.logger)
}
