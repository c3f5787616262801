package handoff

import (
	"context"
	"fmt"
	"strings"

	"github.com/aseangps/agenthub/model"
)

// Classifier decides which configured domain fits an inbound prompt.
// Returning the current domain keeps the conversation where it is.
type Classifier interface {
	Classify(ctx context.Context, prompt, currentDomain string, domains []string) (string, error)
}

// LLMClassifier asks a language model to pick the domain. Output that
// names no configured domain resolves to the current one, so a sloppy
// model never produces a transfer to nowhere.
type LLMClassifier struct {
	llm model.Model
}

// NewLLMClassifier constructs a model-backed intent classifier.
func NewLLMClassifier(llm model.Model) *LLMClassifier { return &LLMClassifier{llm: llm} }

// Classify runs one cheap completion naming the best-fitting domain.
func (c *LLMClassifier) Classify(ctx context.Context, prompt, currentDomain string, domains []string) (string, error) {
	system := fmt.Sprintf(
		"Classify the user's message into exactly one domain out of: %s. "+
			"The conversation is currently handled by the %q specialist; prefer it unless another domain is clearly a better fit. "+
			"Answer with the domain name only.",
		strings.Join(domains, ", "), currentDomain,
	)
	out, err := c.llm.Complete(ctx, model.Request{
		System:   system,
		Messages: []model.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(out))
	for _, d := range domains {
		if strings.Contains(answer, strings.ToLower(d)) {
			return d, nil
		}
	}
	return currentDomain, nil
}

// KeywordClassifier scores domains by keyword hits. It backs tests and
// offline deployments where no model credential is configured.
type KeywordClassifier struct {
	// Keywords maps a domain to the terms that select it.
	Keywords map[string][]string
}

// Classify returns the domain with the most keyword hits, keeping the
// current domain on a zero-hit or tied outcome.
func (c *KeywordClassifier) Classify(_ context.Context, prompt, currentDomain string, domains []string) (string, error) {
	lower := strings.ToLower(prompt)
	best, bestHits := currentDomain, 0
	for _, d := range domains {
		hits := 0
		for _, kw := range c.Keywords[d] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = d, hits
		}
	}
	return best, nil
}
