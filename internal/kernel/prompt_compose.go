package kernel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/store"
)

// expressionBlockLimit bounds how many learned expression styles are
// surfaced per turn, mirroring graph.Retrieve's own small per-entity cap.
const expressionBlockLimit = 5

// composeSystemMessages builds the system-role messages for a turn:
// render the fixed system/chat_system template with its named slots,
// then append whichever optional blocks are non-empty this turn
// (expression styles, vision, schedule, plugin, and environment-switch
// context; tone goes into the template's emotion_relationship slot). Every input here degrades to an empty block on failure
// rather than failing the turn.
func (k *Kernel) composeSystemMessages(
	ctx context.Context,
	retrieval *graph.RetrieveResult,
	visionBlock, scheduleContext, scheduleActionMsg, pluginBlock, switchMsg string,
) ([]llm.Message, error) {
	longTermMemory, err := k.memory.ContextForChat(ctx)
	if err != nil {
		log.WithError(err).Warn("loading long-term memory context failed, continuing without it")
	}

	emotionBlock, err := k.emotion.TonePromptBlock(ctx)
	if err != nil {
		log.WithError(err).Warn("loading emotion tone block failed, continuing without it")
	}

	var environmentContext string
	if env, envErr := k.env.ActiveEnvironment(ctx); envErr != nil {
		if !errors.Is(envErr, errs.ErrNotFound) {
			log.WithError(envErr).Warn("loading active environment failed, continuing without it")
		}
	} else if env != nil {
		environmentContext = fmt.Sprintf("%s: %s", env.Name, env.OverallDescription)
	}

	slots := map[string]string{
		"character_name":       k.characterName,
		"character_profile":    k.world.CharacterProfile(),
		"world_setting":        k.world.WorldSetting(),
		"long_term_memory":     longTermMemory,
		"relevant_knowledge":   graph.RenderContextBlock(retrieval),
		"environment_context":  environmentContext,
		"emotion_relationship": emotionBlock,
	}

	rendered, err := k.prompts.Render("system", "chat_system", slots)
	if err != nil {
		log.WithError(err).Warn("rendering chat_system template failed, falling back to a plain concatenation")
		rendered = fallbackSystemBlock(slots)
	}

	messages := []llm.Message{{Role: schema.System, Content: rendered}}

	agentExpr, err := k.memory.ExpressionPromptBlock(ctx, store.ExpressionAgent, expressionBlockLimit)
	if err != nil {
		log.WithError(err).Debug("loading agent expression style failed, continuing without it")
	}
	userExpr, err := k.memory.ExpressionPromptBlock(ctx, store.ExpressionUser, expressionBlockLimit)
	if err != nil {
		log.WithError(err).Debug("loading user expression context failed, continuing without it")
	}

	appendBlock := func(label, content string) {
		if content == "" {
			return
		}
		messages = append(messages, llm.Message{Role: schema.System, Content: fmt.Sprintf("[%s]\n%s", label, content)})
	}
	appendBlock("agent expression style", agentExpr)
	appendBlock("user expression context", userExpr)
	appendBlock("vision context", visionBlock)
	appendBlock("schedule context", scheduleContext)
	appendBlock("schedule action", scheduleActionMsg)
	appendBlock("plugin context", pluginBlock)
	appendBlock("environment switch", switchMsg)

	return messages, nil
}

// fallbackSystemBlock concatenates the template slots directly when the
// chat_system template file is missing or unreadable, so a deployment
// without prompt assets on disk still produces a usable system turn
// instead of an empty one.
func fallbackSystemBlock(slots map[string]string) string {
	order := []string{
		"character_name", "character_profile", "world_setting",
		"environment_context", "emotion_relationship", "relevant_knowledge", "long_term_memory",
	}
	var b strings.Builder
	for _, key := range order {
		if v := slots[key]; v != "" {
			fmt.Fprintf(&b, "[%s]\n%s\n\n", key, v)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
