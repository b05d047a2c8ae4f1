package llm

import (
	"context"
	"fmt"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/obs"
)

var log = obs.For("llm.router")

// Message is the wire shape accepted by Router.Chat, kept provider-neutral
// at the package boundary even though it is converted 1:1 to
// *schema.Message internally.
type Message struct {
	Role    schema.RoleType
	Content string
}

// Router selects one of the three model tiers per call and exposes a
// single Chat(messages, tier) contract. Selection is caller-driven: the
// router performs no heuristic tier selection.
type Router struct {
	models map[Tier]einoModel.BaseChatModel
}

// NewRouter builds a Router from pre-built per-tier chat models. Building
// the models themselves (via the openai-compatible or anthropic adapters
// in internal/llm/provider) is the caller's responsibility.
func NewRouter(models map[Tier]einoModel.BaseChatModel) *Router {
	return &Router{models: models}
}

// Chat implements the ChatModel contract: Chat(messages, tier) -> (text, error).
// Tool and classifier callers use TierTool; main reply and TaskGraph
// synthesis use TierMain; image/environment narration may use TierVision.
func (r *Router) Chat(ctx context.Context, messages []Message, tier Tier) (string, error) {
	cm, ok := r.models[tier]
	if !ok || cm == nil {
		return "", fmt.Errorf("%w: no model configured for tier %q", errs.ErrUpstream, tier)
	}

	einoMessages := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		einoMessages = append(einoMessages, &schema.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := cm.Generate(ctx, einoMessages)
	if err != nil {
		log.WithField("tier", tier).WithError(err).Warn("chat model call failed")
		return "", fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	return resp.Content, nil
}

// HasTier reports whether a model is configured for the given tier.
func (r *Router) HasTier(tier Tier) bool {
	_, ok := r.models[tier]
	return ok
}
