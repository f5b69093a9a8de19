package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calcrag/calcrag/internal/log"
)

// ErrGenerationUnavailable is returned when every escalation attempt has
// failed. Callers show the user a retry-later message; the underlying
// transport errors are recorded in the message text but never wrapped, so
// they cannot leak through errors.Is checks.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Generator produces an answer for a prompt. One implementation exists per
// tier; the router never cares which backend is behind it.
type Generator interface {
	// Name identifies the model for logs and response metadata.
	Name() string

	// Generate returns the answer text. It must respect ctx cancellation
	// and return the context error on timeout.
	Generate(ctx context.Context, prompt string) (string, error)
}

// RouterConfig holds the router's operational settings.
type RouterConfig struct {
	// AttemptTimeout bounds each individual model call. Zero means the
	// caller's context is the only bound.
	AttemptTimeout time.Duration
}

// Router maps a question to a tier and drives generation with upward
// escalation: a failed or timed-out call retries exactly one tier higher,
// never lower, until the COMPLEX tier has been tried.
type Router struct {
	classifier *Classifier
	models     map[Tier]Generator
	cfg        RouterConfig
	logger     log.Logger
}

// NewRouter builds a router over a complete tier table. All three tiers
// must have a generator; a partial table is a configuration error.
func NewRouter(classifier *Classifier, models map[Tier]Generator, cfg RouterConfig, logger log.Logger) (*Router, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	for _, tier := range []Tier{TierSimple, TierModerate, TierComplex} {
		if models[tier] == nil {
			return nil, fmt.Errorf("no generator for tier %s", tier)
		}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{
		classifier: classifier,
		models:     models,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Classify exposes the router's classifier so callers can report the tier
// without a second classifier instance.
func (r *Router) Classify(question string) Tier {
	return r.classifier.Classify(question)
}

// Result describes a completed generation, including how far the router
// had to escalate to get it.
type Result struct {
	// Answer is the generated text.
	Answer string

	// Classified is the tier the question scored into.
	Classified Tier

	// Served is the tier whose model produced the answer. Equal to
	// Classified unless escalation occurred.
	Served Tier

	// Model is the name of the generator that produced the answer.
	Model string
}

// Escalated reports whether the answer came from a higher tier than the
// question classified into.
func (r *Result) Escalated() bool {
	return r.Served > r.Classified
}

// Generate classifies the question, calls the matching tier's model, and
// escalates one tier per failure. From SIMPLE that is at most two extra
// attempts; when the COMPLEX tier also fails the caller gets
// ErrGenerationUnavailable.
func (r *Router) Generate(ctx context.Context, question, prompt string) (*Result, error) {
	classified := r.classifier.Classify(question)

	var lastErr error
	for tier := classified; tier <= TierComplex; tier++ {
		gen := r.models[tier]
		answer, err := r.attempt(ctx, gen, prompt)
		if err == nil {
			if tier > classified {
				r.logger.Info("answer served by escalated tier",
					"classified", classified.String(),
					"served", tier.String(),
					"model", gen.Name())
			}
			return &Result{
				Answer:     answer,
				Classified: classified,
				Served:     tier,
				Model:      gen.Name(),
			}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			// The caller's own context is gone; a higher tier
			// cannot succeed either.
			break
		}
		r.logger.Warn("model call failed",
			"tier", tier.String(),
			"model", gen.Name(),
			"error", err)
	}

	return nil, fmt.Errorf("%w: last attempt failed with: %v", ErrGenerationUnavailable, lastErr)
}

// attempt runs one model call under the per-attempt timeout.
func (r *Router) attempt(ctx context.Context, gen Generator, prompt string) (string, error) {
	if r.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		defer cancel()
	}
	return gen.Generate(ctx, prompt)
}
