// Package llm implements the chat model router: three named tiers with
// independent {modelName, temperature, maxTokens}, exposing a single
// Chat(messages, tier) contract.
package llm

// Tier names one of the three model tiers.
type Tier string

const (
	// TierMain serves the main reply and TaskGraph synthesis.
	TierMain Tier = "main"
	// TierTool serves classifiers, extraction, and sub-agent calls.
	TierTool Tier = "tool"
	// TierVision serves image/environment narration.
	TierVision Tier = "vision"
)
