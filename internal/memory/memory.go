// Package memory implements layered memory: a short-term message log
// bounded by round count, long-term summaries produced on archival, and
// round-counted knowledge extraction.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/store"
)

var log = obs.For("memory")

const (
	metadataTotalConversations = "total_conversations"

	defaultMaxShortTermRounds       = 20
	defaultKnowledgeExtractInterval = 5
	defaultMaxContextSummaries      = 5
)

// Config tunes the round-counter triggers, sourced from
// internal/config.MemoryConfig.
type Config struct {
	MaxShortTermRounds       int
	KnowledgeExtractInterval int
	ExpressionLearnInterval  int
	MaxContextSummaries      int
}

func (c Config) withDefaults() Config {
	if c.MaxShortTermRounds <= 0 {
		c.MaxShortTermRounds = defaultMaxShortTermRounds
	}
	if c.KnowledgeExtractInterval <= 0 {
		c.KnowledgeExtractInterval = defaultKnowledgeExtractInterval
	}
	if c.ExpressionLearnInterval <= 0 {
		c.ExpressionLearnInterval = defaultExpressionLearnInterval
	}
	if c.MaxContextSummaries <= 0 {
		c.MaxContextSummaries = defaultMaxContextSummaries
	}
	return c
}

// Memory is the layered-memory facade for a single conversation.
type Memory struct {
	store          store.Store
	router         *llm.Router
	graph          *graph.Graph
	conversationID string
	cfg            Config
}

// New builds a Memory facade scoped to one conversation.
func New(s store.Store, router *llm.Router, g *graph.Graph, conversationID string, cfg Config) *Memory {
	return &Memory{store: s, router: router, graph: g, conversationID: conversationID, cfg: cfg.withDefaults()}
}

// AddMessage appends, advances the user-turn counter, fires extraction
// on its interval, and archives when the short-term log overflows.
func (m *Memory) AddMessage(ctx context.Context, role store.Role, content string) error {
	msg := &store.Message{ID: uuid.NewString(), Role: role, Content: content, Timestamp: time.Now().UTC()}
	if err := m.store.AppendMessage(ctx, m.conversationID, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if role == store.RoleUser {
		total, err := m.store.IncrementMetadataInt(ctx, metadataTotalConversations, 1)
		if err != nil {
			return fmt.Errorf("increment total_conversations: %w", err)
		}
		if total%m.cfg.KnowledgeExtractInterval == 0 {
			if err := m.extractKnowledge(ctx); err != nil {
				log.WithError(err).Warn("knowledge extraction failed, skipping")
			}
		}
	}

	count, err := m.store.CountUserMessages(ctx, m.conversationID)
	if err != nil {
		return fmt.Errorf("count user messages: %w", err)
	}
	if count > m.cfg.MaxShortTermRounds {
		if err := m.archiveOldest(ctx, m.cfg.MaxShortTermRounds); err != nil {
			return fmt.Errorf("archive oldest rounds: %w", err)
		}
	}
	return nil
}

// TotalUserTurns reads the lifetime user-turn counter without advancing
// it, for callers (EmotionAnalyzer.ShouldAnalyze, ShouldLearnExpressions)
// that need the same count AddMessage maintains.
func (m *Memory) TotalUserTurns(ctx context.Context) (int, error) {
	raw, ok, err := m.store.GetMetadata(ctx, metadataTotalConversations)
	if err != nil {
		return 0, fmt.Errorf("read total_conversations: %w", err)
	}
	if !ok {
		return 0, nil
	}
	var total int
	fmt.Sscanf(raw, "%d", &total)
	return total, nil
}

// archiveOldest summarises and deletes the oldest `rounds` user turns and
// their interleaved replies.
func (m *Memory) archiveOldest(ctx context.Context, rounds int) error {
	oldest, err := m.store.OldestUserRounds(ctx, m.conversationID, rounds)
	if err != nil {
		return err
	}
	if len(oldest) == 0 {
		return nil
	}

	text, err := m.summarise(ctx, oldest)
	if err != nil {
		return fmt.Errorf("summarise archive batch: %w", err)
	}

	summary := &store.Summary{
		Text:         text,
		Rounds:       rounds,
		MessageCount: len(oldest),
		CreatedAt:    oldest[0].Timestamp,
		EndedAt:      oldest[len(oldest)-1].Timestamp,
	}
	if err := m.store.InsertSummary(ctx, m.conversationID, summary); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return m.store.DeleteMessagesBefore(ctx, m.conversationID, oldest[len(oldest)-1].Timestamp)
}

func (m *Memory) summarise(ctx context.Context, msgs []*store.Message) (string, error) {
	if m.router == nil || !m.router.HasTier(llm.TierMain) {
		return concatenateFallback(msgs), nil
	}
	var transcript strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}
	text, err := m.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Summarise this conversation excerpt in a few sentences, in the same language it is written in."},
		{Role: "user", Content: transcript.String()},
	}, llm.TierMain)
	if err != nil {
		log.WithError(err).Warn("summariser call failed, falling back to concatenation")
		return concatenateFallback(msgs), nil
	}
	return text, nil
}

func concatenateFallback(msgs []*store.Message) string {
	var b strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&b, "%s: %s; ", msg.Role, msg.Content)
	}
	return strings.TrimSuffix(b.String(), "; ")
}

// ContextForChat emits the last <=5 summaries as a single system block.
func (m *Memory) ContextForChat(ctx context.Context) (string, error) {
	summaries, err := m.store.ListSummaries(ctx, m.conversationID, m.cfg.MaxContextSummaries)
	if err != nil {
		return "", fmt.Errorf("list summaries: %w", err)
	}
	if len(summaries) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s\n", s.Text)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type extractionEntry struct {
	EntityName   string  `json:"entity_name"`
	IsDefinition bool    `json:"is_definition"`
	Content      string  `json:"content"`
	Type         string  `json:"type"`
	Source       string  `json:"source"`
	Confidence   float64 `json:"confidence"`
}

const extractionPrompt = `Extract durable facts about entities mentioned in this conversation excerpt. ` +
	`Respond with strict JSON only, an array of ` +
	`{"entity_name","is_definition","content","type","source","confidence"}. ` +
	`Use is_definition=true only for an authoritative "is/means" statement.`

// extractKnowledge runs the Tool-tier knowledge extraction over the last
// KnowledgeExtractInterval user turns and their interleaved replies.
func (m *Memory) extractKnowledge(ctx context.Context) error {
	if m.router == nil || !m.router.HasTier(llm.TierTool) || m.graph == nil {
		return nil
	}
	recent, err := m.store.RecentMessages(ctx, m.conversationID, m.cfg.KnowledgeExtractInterval*2)
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
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: transcript.String()},
	}, llm.TierTool)
	if err != nil {
		return fmt.Errorf("knowledge extraction call: %w", err)
	}

	var entries []extractionEntry
	if err := jsonutil.StrictUnmarshal(text, &entries); err != nil {
		return fmt.Errorf("parse knowledge extraction response: %w", err)
	}

	for _, e := range entries {
		if e.EntityName == "" || e.Content == "" {
			continue
		}
		if e.IsDefinition {
			if err := m.graph.SetDefinition(ctx, e.EntityName, e.Content, e.Type, e.Source, e.Confidence); err != nil {
				log.WithField("entity", e.EntityName).WithError(err).Debug("extracted definition not applied")
			}
			continue
		}
		if _, err := m.graph.AddRelatedInfo(ctx, e.EntityName, e.Content, e.Type, e.Source, e.Confidence, store.StatusSuspected); err != nil {
			log.WithField("entity", e.EntityName).WithError(err).Debug("extracted related info not applied")
		}
	}
	return nil
}
