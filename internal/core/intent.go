package core

import (
	"context"
	"fmt"
	"strings"

	"medichat/internal/llm"
)

// IntentClassifier decides whether a message expresses a wish to see a
// doctor. It delegates the judgement to the completion oracle with a fixed
// yes/no prompt.
type IntentClassifier struct {
	LLM llm.Client
}

// NewIntentClassifier constructs a classifier over the given completion client.
func NewIntentClassifier(client llm.Client) *IntentClassifier {
	return &IntentClassifier{LLM: client}
}

// WantsDoctor returns true iff the oracle's lowercased, trimmed reply
// contains "yes". Malformed or empty replies count as "no"; a failed oracle
// call propagates to the caller.
func (c *IntentClassifier) WantsDoctor(ctx context.Context, text string) (bool, error) {
	prompt := fmt.Sprintf(intentPromptFormat, text)
	resp, err := c.LLM.Complete(ctx, prompt)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(strings.TrimSpace(resp)), "yes"), nil
}
