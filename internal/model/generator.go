// Package model provides Genkit-backed text generators, one per routing
// tier. Each generator is bound to a single named model; tier selection
// and escalation live in the route package.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/calcrag/calcrag/internal/route"
)

// Generator calls one named model through Genkit. It satisfies
// route.Generator.
type Generator struct {
	g         *genkit.Genkit
	modelName string
	system    string
}

// New builds a generator for a fully-qualified model name, for example
// "ollama/qwen2-math:1.5b" or "googleai/gemini-2.5-pro". The system
// prompt is sent with every request and may be empty.
func New(g *genkit.Genkit, modelName, systemPrompt string) (*Generator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &Generator{g: g, modelName: modelName, system: systemPrompt}, nil
}

// Name returns the model name for logs and response metadata.
func (gen *Generator) Name() string { return gen.modelName }

// Generate sends the prompt and returns the trimmed response text. An
// empty response counts as a failure so the router escalates instead of
// showing the user a blank answer.
func (gen *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithPrompt(prompt),
	}
	if gen.system != "" {
		opts = append(opts, ai.WithSystem(gen.system))
	}

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", gen.modelName, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model %s: empty response", gen.modelName)
	}
	return text, nil
}

// TierModels names the model serving each tier.
type TierModels struct {
	Simple   string
	Moderate string
	Complex  string
}

// TierTable builds the complete tier-to-generator table the router takes
// at construction. All three tiers must be named.
func TierTable(g *genkit.Genkit, models TierModels, systemPrompt string) (map[route.Tier]route.Generator, error) {
	names := map[route.Tier]string{
		route.TierSimple:   models.Simple,
		route.TierModerate: models.Moderate,
		route.TierComplex:  models.Complex,
	}

	table := make(map[route.Tier]route.Generator, len(names))
	for tier, name := range names {
		gen, err := New(g, name, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", tier, err)
		}
		table[tier] = gen
	}
	return table, nil
}
