// Package config loads the kernel's environment-driven configuration:
// one aggregate struct composed of small per-concern sub-configs.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ModelTierConfig holds the per-tier model settings.
type ModelTierConfig struct {
	Provider    string  `mapstructure:"provider"`
	ModelName   string  `mapstructure:"model_name"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ModelConfig aggregates the three named tiers.
type ModelConfig struct {
	Main   ModelTierConfig `mapstructure:"main"`
	Tool   ModelTierConfig `mapstructure:"tool"`
	Vision ModelTierConfig `mapstructure:"vision"`
}

// MemoryConfig controls LayeredMemory and related round-counter triggers.
type MemoryConfig struct {
	MaxShortTermRounds        int `mapstructure:"max_short_term_rounds"`
	KnowledgeExtractInterval  int `mapstructure:"knowledge_extract_interval"`
	EmotionFirstRounds        int `mapstructure:"emotion_first_rounds"`
	EmotionIntervalRounds     int `mapstructure:"emotion_interval_rounds"`
	ExpressionLearnInterval   int `mapstructure:"expression_learn_interval"`
	MaxContextSummaries       int `mapstructure:"max_context_summaries"`
}

// StoreConfig holds the relational store's DSN.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PromptConfig holds the prompt template root directory.
type PromptConfig struct {
	Dir string `mapstructure:"dir"`
}

// PluginConfig holds the plugin manifest directory.
type PluginConfig struct {
	Dir string `mapstructure:"dir"`
}

// CharacterConfig names the role-played identity and where its
// worldview markdown modules live.
type CharacterConfig struct {
	Name         string `mapstructure:"name"`
	WorldviewDir string `mapstructure:"worldview_dir"`
}

// CheckpointConfig holds the TaskGraph checkpointer's boltdb path. An
// empty path selects the in-memory checkpointer.
type CheckpointConfig struct {
	BoltPath string `mapstructure:"bolt_path"`
}

// ScheduleConfig holds day-window and slot defaults for ScheduleEngine.
type ScheduleConfig struct {
	DayWindowStartHour int `mapstructure:"day_window_start_hour"`
	DayWindowEndHour   int `mapstructure:"day_window_end_hour"`
}

// Config is the top-level aggregate, mirroring options.Options.
type Config struct {
	Models     ModelConfig      `mapstructure:"models"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Store      StoreConfig      `mapstructure:"store"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Plugin     PluginConfig     `mapstructure:"plugin"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Character  CharacterConfig  `mapstructure:"character"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	TurnDeadline time.Duration `mapstructure:"turn_deadline"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Models: ModelConfig{
			Main:   ModelTierConfig{Provider: "openai", ModelName: "gpt-4o", Temperature: 0.8, MaxTokens: 2048},
			Tool:   ModelTierConfig{Provider: "openai", ModelName: "gpt-4o-mini", Temperature: 0.0, MaxTokens: 1024},
			Vision: ModelTierConfig{Provider: "anthropic", ModelName: "claude-3-5-sonnet-latest", Temperature: 0.2, MaxTokens: 1024},
		},
		Memory: MemoryConfig{
			MaxShortTermRounds:       20,
			KnowledgeExtractInterval: 5,
			EmotionFirstRounds:       5,
			EmotionIntervalRounds:    15,
			ExpressionLearnInterval:  10,
			MaxContextSummaries:      5,
		},
		Store:    StoreConfig{DSN: "neoagent.db"},
		Prompt:   PromptConfig{Dir: "prompts"},
		Plugin:   PluginConfig{Dir: "plugins"},
		Schedule: ScheduleConfig{DayWindowStartHour: 0, DayWindowEndHour: 24},
		Character: CharacterConfig{
			Name:         "Echoryn",
			WorldviewDir: "worldview",
		},
		Checkpoint:   CheckpointConfig{BoltPath: "checkpoints.db"},
		TurnDeadline: 60 * time.Second,
	}
}

// Load reads a .env file (if present), then overlays NEOAGENT_-prefixed
// environment variables onto the defaults via viper.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("NEOAGENT")
	v.AutomaticEnv()

	bind := func(key, env string) { _ = v.BindEnv(key, "NEOAGENT_"+env) }
	bind("models.main.model_name", "LLM_MAIN_MODEL")
	bind("models.main.api_key", "LLM_MAIN_API_KEY")
	bind("models.tool.model_name", "LLM_TOOL_MODEL")
	bind("models.tool.api_key", "LLM_TOOL_API_KEY")
	bind("models.vision.model_name", "LLM_VISION_MODEL")
	bind("models.vision.api_key", "LLM_VISION_API_KEY")
	bind("store.dsn", "STORE_DSN")
	bind("memory.max_short_term_rounds", "SHORT_TERM_ROUNDS")
	bind("memory.knowledge_extract_interval", "KNOWLEDGE_EXTRACT_INTERVAL")
	bind("memory.emotion_first_rounds", "EMOTION_FIRST_ROUNDS")
	bind("memory.emotion_interval_rounds", "EMOTION_INTERVAL_ROUNDS")
	bind("memory.expression_learn_interval", "EXPRESSION_LEARN_INTERVAL")
	bind("prompt.dir", "PROMPT_DIR")
	bind("plugin.dir", "PLUGIN_DIR")
	bind("character.name", "CHARACTER_NAME")
	bind("character.worldview_dir", "WORLDVIEW_DIR")
	bind("checkpoint.bolt_path", "CHECKPOINT_PATH")

	if s := v.GetString("store.dsn"); s != "" {
		cfg.Store.DSN = s
	}
	if m := v.GetString("models.main.model_name"); m != "" {
		cfg.Models.Main.ModelName = m
	}
	if k := v.GetString("models.main.api_key"); k != "" {
		cfg.Models.Main.APIKey = k
	}
	if m := v.GetString("models.tool.model_name"); m != "" {
		cfg.Models.Tool.ModelName = m
	}
	if k := v.GetString("models.tool.api_key"); k != "" {
		cfg.Models.Tool.APIKey = k
	}
	if m := v.GetString("models.vision.model_name"); m != "" {
		cfg.Models.Vision.ModelName = m
	}
	if k := v.GetString("models.vision.api_key"); k != "" {
		cfg.Models.Vision.APIKey = k
	}
	if d := v.GetString("prompt.dir"); d != "" {
		cfg.Prompt.Dir = d
	}
	if d := v.GetString("plugin.dir"); d != "" {
		cfg.Plugin.Dir = d
	}
	if n := v.GetString("character.name"); n != "" {
		cfg.Character.Name = n
	}
	if d := v.GetString("character.worldview_dir"); d != "" {
		cfg.Character.WorldviewDir = d
	}
	if p := v.GetString("checkpoint.bolt_path"); p != "" {
		cfg.Checkpoint.BoltPath = p
	}
	if n := v.GetInt("memory.max_short_term_rounds"); n > 0 {
		cfg.Memory.MaxShortTermRounds = n
	}
	if n := v.GetInt("memory.knowledge_extract_interval"); n > 0 {
		cfg.Memory.KnowledgeExtractInterval = n
	}
	if n := v.GetInt("memory.emotion_first_rounds"); n > 0 {
		cfg.Memory.EmotionFirstRounds = n
	}
	if n := v.GetInt("memory.emotion_interval_rounds"); n > 0 {
		cfg.Memory.EmotionIntervalRounds = n
	}
	if n := v.GetInt("memory.expression_learn_interval"); n > 0 {
		cfg.Memory.ExpressionLearnInterval = n
	}

	return cfg, nil
}
