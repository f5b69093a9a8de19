package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/calcrag/calcrag/internal/log"
	"github.com/calcrag/calcrag/internal/route"
	"github.com/calcrag/calcrag/internal/tutor"
)

// maxAskBodySize bounds the request body. Questions are short; anything
// larger is abuse.
const maxAskBodySize = 16 * 1024

type askHandler struct {
	pipeline Asker
	logger   log.Logger
}

type askRequest struct {
	Question string `json:"question"`
	// LearnerID is optional. Without it the answer skips the mastery
	// lookup and gap notices assume nothing is mastered.
	LearnerID string `json:"learner_id,omitempty"`
}

type askResponse struct {
	Answer     string       `json:"answer"`
	Classified string       `json:"classified"`
	Tier       string       `json:"tier"`
	Model      string       `json:"model"`
	Escalated  bool         `json:"escalated"`
	Sources    []sourceInfo `json:"sources"`
	Gaps       *gapInfo     `json:"gaps,omitempty"`
	GapNotice  string       `json:"gap_notice,omitempty"`
}

type sourceInfo struct {
	ChunkID      string  `json:"chunk_id"`
	TopicID      string  `json:"topic_id,omitempty"`
	SourceFile   string  `json:"source_file,omitempty"`
	Score        float32 `json:"score"`
	Prerequisite bool    `json:"prerequisite,omitempty"`
}

type gapInfo struct {
	DetectedTopics []string   `json:"detected_topics"`
	Missing        []gapTopic `json:"missing"`
	NextTopic      *gapTopic  `json:"next_topic,omitempty"`
	Confused       bool       `json:"confused,omitempty"`
}

type gapTopic struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Difficulty int    `json:"difficulty"`
}

func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBodySize)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "empty_question", "question is required", h.logger)
		return
	}

	learnerID := uuid.Nil
	if req.LearnerID != "" {
		id, err := uuid.Parse(req.LearnerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_learner_id", "learner_id must be a UUID", h.logger)
			return
		}
		learnerID = id
	}

	resp, err := h.pipeline.Ask(r.Context(), learnerID, req.Question)
	if err != nil {
		if errors.Is(err, route.ErrGenerationUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "generation_unavailable",
				"all generation tiers failed, try again later", h.logger)
			return
		}
		h.logger.Error("answering question", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, toAskResponse(resp), h.logger)
}

func toAskResponse(resp *tutor.Response) askResponse {
	out := askResponse{
		Answer:     resp.Answer,
		Classified: resp.Classified.String(),
		Tier:       resp.Tier.String(),
		Model:      resp.Model,
		Escalated:  resp.Escalated,
		Sources:    make([]sourceInfo, 0, len(resp.Sources)),
		GapNotice:  resp.GapNotice,
	}
	for _, s := range resp.Sources {
		out.Sources = append(out.Sources, sourceInfo{
			ChunkID:      s.ChunkID,
			TopicID:      s.TopicID,
			SourceFile:   s.SourceFile,
			Score:        s.Score,
			Prerequisite: s.Prerequisite,
		})
	}
	if resp.Gaps != nil {
		gi := &gapInfo{
			DetectedTopics: resp.Gaps.DetectedTopics,
			Missing:        make([]gapTopic, 0, len(resp.Gaps.Missing)),
			Confused:       resp.Gaps.Confused,
		}
		for _, t := range resp.Gaps.Missing {
			gi.Missing = append(gi.Missing, gapTopic{ID: t.ID, Name: t.Name, Difficulty: t.Difficulty})
		}
		if next := resp.Gaps.NextTopic; next != nil {
			gi.NextTopic = &gapTopic{ID: next.ID, Name: next.Name, Difficulty: next.Difficulty}
		}
		out.Gaps = gi
	}
	return out
}
