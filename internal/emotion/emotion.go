// Package emotion produces round-triggered relationship snapshots from
// the last 30 messages plus the character profile. Snapshots are
// append-only.
package emotion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/kernel/jsonutil"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/store"
)

var log = obs.For("emotion")

const (
	metadataLastAnalyzedRounds = "last_emotion_rounds"
	maxConsumedMessages        = 30

	defaultFirstRounds    = 5
	defaultIntervalRounds = 15
)

// Config tunes the trigger policy, sourced from internal/config.MemoryConfig.
type Config struct {
	FirstRounds    int
	IntervalRounds int
}

func (c Config) withDefaults() Config {
	if c.FirstRounds <= 0 {
		c.FirstRounds = defaultFirstRounds
	}
	if c.IntervalRounds <= 0 {
		c.IntervalRounds = defaultIntervalRounds
	}
	return c
}

// Analyzer is the EmotionAnalyzer facade for one conversation.
type Analyzer struct {
	store          store.Store
	router         *llm.Router
	conversationID string
	cfg            Config
}

// New builds an Analyzer scoped to one conversation.
func New(s store.Store, router *llm.Router, conversationID string, cfg Config) *Analyzer {
	return &Analyzer{store: s, router: router, conversationID: conversationID, cfg: cfg.withDefaults()}
}

// ShouldAnalyze reports whether analysis is due: first run once
// totalUserTurns >= FirstRounds and no snapshot has been taken yet;
// thereafter every IntervalRounds user turns.
func (a *Analyzer) ShouldAnalyze(ctx context.Context, totalUserTurns int) (bool, error) {
	raw, ok, err := a.store.GetMetadata(ctx, metadataLastAnalyzedRounds)
	if err != nil {
		return false, fmt.Errorf("read last_emotion_rounds: %w", err)
	}
	last := 0
	if ok {
		fmt.Sscanf(raw, "%d", &last)
	}
	if last == 0 {
		return totalUserTurns >= a.cfg.FirstRounds, nil
	}
	return totalUserTurns-last >= a.cfg.IntervalRounds, nil
}

type analysisResult struct {
	RelationshipType string  `json:"relationship_type"`
	EmotionalTone    string  `json:"emotional_tone"`
	OverallScore     float64 `json:"overall_score"`
	Intimacy         float64 `json:"intimacy"`
	Trust            float64 `json:"trust"`
	Pleasure         float64 `json:"pleasure"`
	Resonance        float64 `json:"resonance"`
	Dependence       float64 `json:"dependence"`
	Summary          string  `json:"summary"`
}

const analysisPrompt = `Analyse the emotional relationship between user and assistant in this ` +
	`conversation excerpt, given the character profile. Respond with strict JSON only: ` +
	`{"relationship_type","emotional_tone","overall_score","intimacy","trust","pleasure","resonance","dependence","summary"}, ` +
	`all numeric fields in [0,1] except overall_score.`

// Analyze runs the Tool-tier relationship analysis, persists a new
// EmotionSnapshot, and advances the round counter. Snapshots are never
// edited in-place; on failure the counter is left unadvanced so the
// analysis retries next eligible round.
func (a *Analyzer) Analyze(ctx context.Context, totalUserTurns int, characterProfile string) (*store.EmotionSnapshot, error) {
	if a.router == nil || !a.router.HasTier(llm.TierTool) {
		return nil, fmt.Errorf("no tool-tier model configured for emotion analysis")
	}

	recent, err := a.store.RecentMessages(ctx, a.conversationID, maxConsumedMessages)
	if err != nil {
		return nil, fmt.Errorf("fetch recent messages: %w", err)
	}

	var transcript strings.Builder
	for _, msg := range recent {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}

	text, err := a.router.Chat(ctx, []llm.Message{
		{Role: "system", Content: analysisPrompt + "\nCharacter profile: " + characterProfile},
		{Role: "user", Content: transcript.String()},
	}, llm.TierTool)
	if err != nil {
		log.WithError(err).Warn("emotion analysis call failed, counter left unadvanced")
		return nil, fmt.Errorf("emotion analysis call: %w", err)
	}

	var res analysisResult
	if err := jsonutil.StrictUnmarshal(text, &res); err != nil {
		log.WithError(err).Warn("emotion analysis response unparsable, counter left unadvanced")
		return nil, fmt.Errorf("parse emotion analysis response: %w", err)
	}

	snapshot := &store.EmotionSnapshot{
		RelationshipType: res.RelationshipType,
		EmotionalTone:    res.EmotionalTone,
		OverallScore:     res.OverallScore,
		Dims: store.EmotionDims{
			Intimacy: res.Intimacy, Trust: res.Trust, Pleasure: res.Pleasure,
			Resonance: res.Resonance, Dependence: res.Dependence,
		},
		AnalysisSummary: res.Summary,
	}
	if err := a.store.InsertEmotionSnapshot(ctx, a.conversationID, snapshot); err != nil {
		return nil, fmt.Errorf("insert emotion snapshot: %w", err)
	}
	if err := a.store.SetMetadata(ctx, metadataLastAnalyzedRounds, fmt.Sprintf("%d", totalUserTurns)); err != nil {
		return nil, fmt.Errorf("advance last_emotion_rounds: %w", err)
	}
	return snapshot, nil
}

// TonePromptBlock formats the latest snapshot for the PromptLibrary's
// emotion_relationship slot; returns empty if no snapshot exists.
func (a *Analyzer) TonePromptBlock(ctx context.Context) (string, error) {
	snap, err := a.store.LatestEmotionSnapshot(ctx, a.conversationID)
	if errors.Is(err, errs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch latest emotion snapshot: %w", err)
	}
	return fmt.Sprintf(
		"relationship: %s, tone: %s, overall: %.2f (intimacy=%.2f trust=%.2f pleasure=%.2f resonance=%.2f dependence=%.2f)",
		snap.RelationshipType, snap.EmotionalTone, snap.OverallScore,
		snap.Dims.Intimacy, snap.Dims.Trust, snap.Dims.Pleasure, snap.Dims.Resonance, snap.Dims.Dependence,
	), nil
}
