package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/topic"
)

type topicHandler struct {
	registry *topic.Registry
	graph    *prereq.Graph
	mastery  MasteryStore
	logger   log.Logger
}

type topicInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Strand        string   `json:"strand"`
	Difficulty    int      `json:"difficulty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

type topicDetail struct {
	topicInfo
	TransitivePrerequisites []string `json:"transitive_prerequisites,omitempty"`
	Dependents              []string `json:"dependents,omitempty"`
}

type pathResponse struct {
	TopicID string   `json:"topic_id"`
	Path    []string `json:"path"`
}

type gapsResponse struct {
	TopicID string      `json:"topic_id"`
	Missing []topicInfo `json:"missing"`
}

func toTopicInfo(t topic.Topic) topicInfo {
	return topicInfo{
		ID:            t.ID,
		Name:          t.Name,
		Description:   t.Description,
		Strand:        string(t.Strand),
		Difficulty:    t.Difficulty,
		Prerequisites: t.Prerequisites,
	}
}

// list returns the whole catalog, optionally filtered by ?strand=.
func (h *topicHandler) list(w http.ResponseWriter, r *http.Request) {
	var topics []topic.Topic
	if strand := r.URL.Query().Get("strand"); strand != "" {
		topics = h.registry.ByStrand(topic.Strand(strand))
	} else {
		topics = h.registry.All()
	}

	out := make([]topicInfo, 0, len(topics))
	for _, t := range topics {
		out = append(out, toTopicInfo(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": out}, h.logger)
}

// get returns one topic with its full prerequisite context.
func (h *topicHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	t, err := h.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_topic", "topic not found: "+id, h.logger)
		return
	}

	transitive, err := h.graph.Transitive(id)
	if err != nil {
		h.logger.Error("resolving prerequisites", "topic", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, topicDetail{
		topicInfo:               toTopicInfo(t),
		TransitivePrerequisites: transitive,
		Dependents:              h.graph.Dependents(id),
	}, h.logger)
}

// masteredFor resolves the optional ?learner_id= query into a mastered
// set. The bool reports whether the request was well-formed.
func (h *topicHandler) masteredFor(w http.ResponseWriter, r *http.Request) (map[string]bool, bool) {
	mastered := map[string]bool{}
	learner := r.URL.Query().Get("learner_id")
	if learner == "" || h.mastery == nil {
		return mastered, true
	}

	learnerID, err := uuid.Parse(learner)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner_id must be a UUID", h.logger)
		return nil, false
	}
	mastered, err = h.mastery.Mastered(r.Context(), learnerID)
	if err != nil {
		h.logger.Error("loading mastered topics", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return nil, false
	}
	return mastered, true
}

// gaps returns the prerequisites of a topic the learner has not mastered
// yet, in study order. Without ?learner_id= nothing counts as mastered.
func (h *topicHandler) gaps(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	mastered, ok := h.masteredFor(w, r)
	if !ok {
		return
	}

	missing, err := h.graph.Missing(id, mastered)
	if err != nil {
		if errors.Is(err, topic.ErrUnknownTopic) {
			writeError(w, http.StatusNotFound, "unknown_topic", "topic not found: "+id, h.logger)
			return
		}
		h.logger.Error("computing gaps", "topic", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	out := gapsResponse{TopicID: id, Missing: make([]topicInfo, 0, len(missing))}
	for _, mid := range missing {
		t, err := h.registry.Get(mid)
		if err != nil {
			continue
		}
		out.Missing = append(out.Missing, toTopicInfo(t))
	}
	writeJSON(w, http.StatusOK, out, h.logger)
}

// path returns the learning path to a topic. With ?learner_id= the
// learner's mastered topics are excluded from the path.
func (h *topicHandler) path(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	mastered, ok := h.masteredFor(w, r)
	if !ok {
		return
	}

	path, err := h.graph.LearningPath(id, mastered)
	if err != nil {
		if errors.Is(err, topic.ErrUnknownTopic) {
			writeError(w, http.StatusNotFound, "unknown_topic", "topic not found: "+id, h.logger)
			return
		}
		h.logger.Error("computing learning path", "topic", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, pathResponse{TopicID: id, Path: path}, h.logger)
}
