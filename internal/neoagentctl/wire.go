// Package neoagentctl wires every component package into a running
// agent kernel and exposes the cobra command surface for the
// neoagentctl binary.
package neoagentctl

import (
	"context"
	"fmt"

	einoModel "github.com/cloudwego/eino/components/model"

	"github.com/hedaas-code/neoagent/internal/config"
	"github.com/hedaas-code/neoagent/internal/emotion"
	"github.com/hedaas-code/neoagent/internal/environment"
	"github.com/hedaas-code/neoagent/internal/kernel"
	"github.com/hedaas-code/neoagent/internal/knowledge/base"
	"github.com/hedaas-code/neoagent/internal/knowledge/graph"
	"github.com/hedaas-code/neoagent/internal/llm"
	"github.com/hedaas-code/neoagent/internal/llm/provider"
	"github.com/hedaas-code/neoagent/internal/memory"
	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/plugin"
	"github.com/hedaas-code/neoagent/internal/plugin/builtin"
	"github.com/hedaas-code/neoagent/internal/prompt"
	"github.com/hedaas-code/neoagent/internal/schedule"
	"github.com/hedaas-code/neoagent/internal/store"
	"github.com/hedaas-code/neoagent/internal/store/sqlite"
	"github.com/hedaas-code/neoagent/internal/taskgraph"
	"github.com/hedaas-code/neoagent/internal/taskgraph/checkpoint"
	"github.com/hedaas-code/neoagent/internal/worldview"
)

var log = obs.For("neoagentctl")

// App bundles the assembled Kernel with every resource that needs an
// orderly shutdown.
type App struct {
	Kernel *kernel.Kernel
	Config *config.Config

	db        *sqlite.DB
	promptLib *prompt.Library
	boltCheck *checkpoint.BoltStore
}

// Close releases every resource opened by Build, in reverse order.
func (a *App) Close() error {
	if a.promptLib != nil {
		a.promptLib.Close()
	}
	if a.boltCheck != nil {
		_ = a.boltCheck.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Build assembles every component package into a Kernel. It is the one
// place that knows the construction order: store, then router, then the
// components that read the store and/or router, then the Kernel itself.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := sqlite.Open(cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	router, err := buildRouter(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("build chat model router: %w", err)
	}

	promptLib, err := prompt.NewLibrary(cfg.Prompt.Dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load prompt library: %w", err)
	}

	world, err := worldview.Load(cfg.Character.WorldviewDir)
	if err != nil {
		_ = db.Close()
		promptLib.Close()
		return nil, fmt.Errorf("load worldview: %w", err)
	}

	var s store.Store = db

	kb := base.New(s)
	g := graph.New(s, kb, router)
	mem := memory.New(s, router, g, kernel.DefaultConversationID, memory.Config{
		MaxShortTermRounds:       cfg.Memory.MaxShortTermRounds,
		KnowledgeExtractInterval: cfg.Memory.KnowledgeExtractInterval,
		ExpressionLearnInterval:  cfg.Memory.ExpressionLearnInterval,
		MaxContextSummaries:      cfg.Memory.MaxContextSummaries,
	})
	emo := emotion.New(s, router, kernel.DefaultConversationID, emotion.Config{
		FirstRounds:    cfg.Memory.EmotionFirstRounds,
		IntervalRounds: cfg.Memory.EmotionIntervalRounds,
	})
	env := environment.New(s, router)
	sched := schedule.NewWithConfig(s, router, schedule.Config{
		DayWindowStartHour: cfg.Schedule.DayWindowStartHour,
		DayWindowEndHour:   cfg.Schedule.DayWindowEndHour,
	})

	registry := plugin.NewRegistry()
	registry.Register(builtin.NewSysTime())
	if manifest, merr := plugin.LoadManifest(cfg.Plugin.Dir + "/plugins.yaml"); merr != nil {
		log.WithError(merr).Warn("loading plugin manifest failed, continuing with builtin defaults")
	} else {
		_ = manifest // descriptive only; toggles are applied per-plugin by their own Enabled()
	}
	invoker := plugin.New(registry, router)

	var cp checkpoint.Checkpointer
	var boltCheck *checkpoint.BoltStore
	if cfg.Checkpoint.BoltPath != "" {
		boltCheck, err = checkpoint.OpenBoltStore(cfg.Checkpoint.BoltPath)
		if err != nil {
			_ = db.Close()
			promptLib.Close()
			return nil, fmt.Errorf("open checkpoint store: %w", err)
		}
		cp = boltCheck
	} else {
		cp = checkpoint.NewMemoryStore()
	}
	tasks := taskgraph.New(router, cp)

	k := kernel.New(kernel.Dependencies{
		Store:         s,
		Router:        router,
		CharacterName: cfg.Character.Name,
		Knowledge:     kb,
		Graph:         g,
		Memory:        mem,
		Emotion:       emo,
		Env:           env,
		Schedules:     sched,
		Plugins:       invoker,
		Prompts:       promptLib,
		World:         world,
		Tasks:         tasks,
	})

	log.WithField("character", cfg.Character.Name).Info("neoagentctl assembled")

	return &App{
		Kernel:    k,
		Config:    cfg,
		db:        db,
		promptLib: promptLib,
		boltCheck: boltCheck,
	}, nil
}

// buildRouter constructs a BaseChatModel for every configured tier. A
// tier whose model name is empty is skipped rather than failing the
// whole router, since a deployment may only need Main+Tool and never
// call Vision.
func buildRouter(ctx context.Context, cfg *config.Config) (*llm.Router, error) {
	models := make(map[llm.Tier]einoModel.BaseChatModel, 3)

	if cfg.Models.Main.ModelName != "" {
		m, err := provider.Build(ctx, cfg.Models.Main)
		if err != nil {
			return nil, fmt.Errorf("build main tier: %w", err)
		}
		models[llm.TierMain] = m
	}
	if cfg.Models.Tool.ModelName != "" {
		m, err := provider.Build(ctx, cfg.Models.Tool)
		if err != nil {
			return nil, fmt.Errorf("build tool tier: %w", err)
		}
		models[llm.TierTool] = m
	}
	if cfg.Models.Vision.ModelName != "" {
		m, err := provider.Build(ctx, cfg.Models.Vision)
		if err != nil {
			return nil, fmt.Errorf("build vision tier: %w", err)
		}
		models[llm.TierVision] = m
	}

	return llm.NewRouter(models), nil
}
