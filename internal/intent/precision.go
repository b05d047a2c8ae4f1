package intent

import (
	"context"
	"strings"

	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
)

// highPrecisionKeywords are a fast pre-check: a perception query that
// names specific detail (objects, senses) wants high-precision
// narration without needing to ask the model at all.
var highPrecisionKeywords = []string{
	"exactly", "specifically", "in detail", "what objects", "describe",
	"具体", "详细", "仔细看看", "都有什么",
}

type precisionVerdict struct {
	HighPrecision bool `json:"high_precision"`
}

const precisionPrompt = `Decide whether the user's perception query wants a detailed, high-precision ` +
	`description (specific objects, sounds, lighting) or a brief overview. ` +
	`Respond with strict JSON only: {"high_precision"}.`

// QueryPrecision decides whether a perception query (already gated by
// HasPerceptionIntent) should receive high-precision narration. A
// keyword pre-check short-circuits obvious cases; otherwise a Tool-tier
// classifier arbitrates. On any classifier failure it degrades to low
// precision, the cheaper and less assumption-laden default.
func QueryPrecision(ctx context.Context, router *llm.Router, userInput string) bool {
	lower := strings.ToLower(userInput)
	for _, kw := range highPrecisionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	if router == nil || !router.HasTier(llm.TierTool) {
		return false
	}

	text, err := router.Chat(ctx, []llm.Message{
		{Role: "system", Content: precisionPrompt},
		{Role: "user", Content: userInput},
	}, llm.TierTool)
	if err != nil {
		log.WithError(err).Debug("precision classifier call failed, defaulting to low precision")
		return false
	}

	var verdict precisionVerdict
	if err := jsonutil.StrictUnmarshal(text, &verdict); err != nil {
		log.WithError(err).Debug("precision classifier response unparsable, defaulting to low precision")
		return false
	}
	return verdict.HighPrecision
}
