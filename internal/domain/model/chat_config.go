package model

import "math"

// Bounds and defaults for the model parameters. Out-of-range values are
// clamped; NaN falls back to the named default.
const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTemperature     = 1.0
	DefaultMaxTokens       = 2000
	DefaultPresencePenalty = 0.0

	MinTemperature     = 0.0
	MaxTemperature     = 2.0
	MinMaxTokens       = 0
	MaxMaxTokens       = 32000
	MinPresencePenalty = -2.0
	MaxPresencePenalty = 2.0

	DefaultHistoryMessageCount = 4
	DefaultCompressThreshold   = 1000

	// FallbackTokenBudget is the effective summarization budget when
	// max_tokens is unset (zero counts as unset; there is no way to tell an
	// explicit zero from an absent field once the config is decoded).
	FallbackTokenBudget = 4000
)

// AvailableModels is the whitelist a requested model name is checked
// against. Unknown names fall back to DefaultModel.
var AvailableModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-3.5-turbo",
	"gemini-2.0-flash",
	"gemini-1.5-pro",
}

type ModelConfig struct {
	Model           string  `json:"model" yaml:"model"`
	Temperature     float64 `json:"temperature" yaml:"temperature"`
	MaxTokens       int     `json:"max_tokens" yaml:"max_tokens"`
	PresencePenalty float64 `json:"presence_penalty" yaml:"presence_penalty"`
}

// ChatConfig is the global, session-independent chat behaviour.
// HistoryMessageCount < 0 means the trailing window is unbounded.
type ChatConfig struct {
	HistoryMessageCount            int         `json:"history_message_count" yaml:"history_message_count"`
	CompressMessageLengthThreshold int         `json:"compress_message_length_threshold" yaml:"compress_message_length_threshold"`
	SendBotMessages                bool        `json:"send_bot_messages" yaml:"send_bot_messages"`
	ModelConfig                    ModelConfig `json:"model_config" yaml:"model_config"`
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		HistoryMessageCount:            DefaultHistoryMessageCount,
		CompressMessageLengthThreshold: DefaultCompressThreshold,
		SendBotMessages:                true,
		ModelConfig: ModelConfig{
			Model:           DefaultModel,
			Temperature:     DefaultTemperature,
			MaxTokens:       DefaultMaxTokens,
			PresencePenalty: DefaultPresencePenalty,
		},
	}
}

func ValidateModel(name string) string {
	for _, m := range AvailableModels {
		if m == name {
			return name
		}
	}
	return DefaultModel
}

func ClampTemperature(v float64) float64 {
	return clampFloat(v, MinTemperature, MaxTemperature, DefaultTemperature)
}

func ClampPresencePenalty(v float64) float64 {
	return clampFloat(v, MinPresencePenalty, MaxPresencePenalty, DefaultPresencePenalty)
}

func ClampMaxTokens(v int) int {
	if v < MinMaxTokens {
		return MinMaxTokens
	}
	if v > MaxMaxTokens {
		return MaxMaxTokens
	}
	return v
}

func clampFloat(v, min, max, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Normalize applies the bounds validation and the model whitelist in place.
// Every config write path goes through it.
func (c *ChatConfig) Normalize() {
	c.ModelConfig.Model = ValidateModel(c.ModelConfig.Model)
	c.ModelConfig.Temperature = ClampTemperature(c.ModelConfig.Temperature)
	c.ModelConfig.MaxTokens = ClampMaxTokens(c.ModelConfig.MaxTokens)
	c.ModelConfig.PresencePenalty = ClampPresencePenalty(c.ModelConfig.PresencePenalty)
	if c.CompressMessageLengthThreshold <= 0 {
		c.CompressMessageLengthThreshold = DefaultCompressThreshold
	}
}

// EffectiveTokenBudget is the character budget used when deciding whether
// the unsummarized slice must be truncated before compression.
func (c ChatConfig) EffectiveTokenBudget() int {
	if c.ModelConfig.MaxTokens > 0 {
		return c.ModelConfig.MaxTokens
	}
	return FallbackTokenBudget
}
