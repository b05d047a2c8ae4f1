package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/store"
)

const (
	metadataLastExpressionLearnRounds = "last_expression_learn_rounds"
	defaultExpressionLearnInterval    = 10
	expressionLookbackMessages        = 20
)

type expressionEntry struct {
	Kind       string `json:"kind"`
	Expression string `json:"expression"`
	Meaning    string `json:"meaning"`
	Category   string `json:"category"`
}

const expressionPrompt = `Identify habitual, recurring expressions or turns of phrase used by the ` +
	`user or the assistant in this conversation excerpt. Respond with strict JSON only, an array of ` +
	`{"kind": "agent"|"user", "expression", "meaning", "category"}. Return [] if nothing is habitual yet.`

// ShouldLearnExpressions reports whether expression-style learning
// should run this turn: every interval user turns, tracked via its own
// metadata counter.
func (m *Memory) ShouldLearnExpressions(ctx context.Context, totalUserTurns, interval int) (bool, error) {
	if interval <= 0 {
		interval = m.cfg.ExpressionLearnInterval
	}
	raw, ok, err := m.store.GetMetadata(ctx, metadataLastExpressionLearnRounds)
	if err != nil {
		return false, fmt.Errorf("read last_expression_learn_rounds: %w", err)
	}
	last := 0
	if ok {
		fmt.Sscanf(raw, "%d", &last)
	}
	return totalUserTurns-last >= interval, nil
}

// LearnExpressions runs the Tool-tier extraction over the last
// expressionLookbackMessages messages and persists any learned styles,
// then advances the round counter. Failure is logged and skipped; the
// counter is left unadvanced so learning retries next eligible turn.
func (m *Memory) LearnExpressions(ctx context.Context, totalUserTurns int) error {
	if m.router == nil || !m.router.HasTier(llm.TierTool) {
		return nil
	}

	recent, err := m.store.RecentMessages(ctx, m.conversationID, expressionLookbackMessages)
	if err != nil {
		return fmt.Errorf("fetch recent messages: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}

	var transcript strings.Builder
	for _, msg := range recent {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}

	text, err := m.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: expressionPrompt},
		{Role: "user", Content: transcript.String()},
	}, llm.TierTool)
	if err != nil {
		log.WithError(err).Warn("expression learning call failed, counter left unadvanced")
		return fmt.Errorf("expression learning call: %w", err)
	}

	var entries []expressionEntry
	if err := jsonutil.StrictUnmarshal(text, &entries); err != nil {
		log.WithError(err).Warn("expression learning response unparsable, counter left unadvanced")
		return fmt.Errorf("parse expression learning response: %w", err)
	}

	for _, e := range entries {
		if e.Expression == "" {
			continue
		}
		kind := store.ExpressionUser
		if e.Kind == string(store.ExpressionAgent) {
			kind = store.ExpressionAgent
		}
		if err := m.store.InsertExpressionStyle(ctx, &store.ExpressionStyle{
			Kind: kind, Expression: e.Expression, Meaning: e.Meaning, Category: e.Category,
		}); err != nil {
			log.WithField("expression", e.Expression).WithError(err).Debug("expression style not persisted")
		}
	}

	return m.store.SetMetadata(ctx, metadataLastExpressionLearnRounds, fmt.Sprintf("%d", totalUserTurns))
}

// ExpressionPromptBlock formats the most recently learned styles of kind
// for PromptLibrary's agent-expression-style / user-expression-context
// slots.
func (m *Memory) ExpressionPromptBlock(ctx context.Context, kind store.ExpressionKind, limit int) (string, error) {
	styles, err := m.store.ListExpressionStyles(ctx, kind, limit)
	if err != nil {
		return "", fmt.Errorf("list expression styles: %w", err)
	}
	if len(styles) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, s := range styles {
		fmt.Fprintf(&b, "- %s (%s): %s\n", s.Expression, s.Category, s.Meaning)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
