package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/plauderbot/plauderbot/pkg/brain"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_channels can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Channels ChannelsConfig `json:"channels"`
	Brain    BrainConfig    `json:"brain"`
	Gateway  GatewayConfig  `json:"gateway"`
	Cron     CronConfig     `json:"cron"`
	LogLevel string         `json:"log_level" env:"PLAUDERBOT_LOG_LEVEL"`
	mu       sync.RWMutex
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token         string              `json:"token" env:"PLAUDERBOT_CHANNELS_DISCORD_TOKEN"`
	AllowChannels FlexibleStringSlice `json:"allow_channels" env:"PLAUDERBOT_CHANNELS_DISCORD_ALLOW_CHANNELS"`
	ReplyChance   float64             `json:"reply_chance" env:"PLAUDERBOT_CHANNELS_DISCORD_REPLY_CHANCE"`
}

type BrainConfig struct {
	DataPath            string  `json:"data_path" env:"PLAUDERBOT_BRAIN_DATA_PATH"`
	Order               int     `json:"order" env:"PLAUDERBOT_BRAIN_ORDER"`
	Lowercase           bool    `json:"lowercase" env:"PLAUDERBOT_BRAIN_LOWERCASE"`
	DecayHalfLifeDays   int     `json:"decay_half_life_days" env:"PLAUDERBOT_BRAIN_DECAY_HALF_LIFE_DAYS"`
	MaxPairsPerKey      int     `json:"max_pairs_per_key" env:"PLAUDERBOT_BRAIN_MAX_PAIRS_PER_KEY"`
	MaxVocabulary       int     `json:"max_vocabulary" env:"PLAUDERBOT_BRAIN_MAX_VOCABULARY"`
	MaxLen              int     `json:"max_len" env:"PLAUDERBOT_BRAIN_MAX_LEN"`
	MinLen              int     `json:"min_len" env:"PLAUDERBOT_BRAIN_MIN_LEN"`
	Temperature         float64 `json:"temperature" env:"PLAUDERBOT_BRAIN_TEMPERATURE"`
	SimilarityThreshold float64 `json:"similarity_threshold" env:"PLAUDERBOT_BRAIN_SIMILARITY_THRESHOLD"`
	TopK                int     `json:"top_k" env:"PLAUDERBOT_BRAIN_TOP_K"`
	PreferRecentHours   int     `json:"prefer_recent_hours" env:"PLAUDERBOT_BRAIN_PREFER_RECENT_HOURS"`
	SteerToInput        bool    `json:"steer_to_input" env:"PLAUDERBOT_BRAIN_STEER_TO_INPUT"`
	SanitizeMentions    bool    `json:"sanitize_mentions" env:"PLAUDERBOT_BRAIN_SANITIZE_MENTIONS"`
	MergeWindowMS       int     `json:"merge_window_ms" env:"PLAUDERBOT_BRAIN_MERGE_WINDOW_MS"`
	LookbackN           int     `json:"lookback_n" env:"PLAUDERBOT_BRAIN_LOOKBACK_N"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"PLAUDERBOT_GATEWAY_HOST"`
	Port int    `json:"port" env:"PLAUDERBOT_GATEWAY_PORT"`
}

type CronConfig struct {
	Enabled             bool   `json:"enabled" env:"PLAUDERBOT_CRON_ENABLED"`
	MaintenanceSchedule string `json:"maintenance_schedule" env:"PLAUDERBOT_CRON_MAINTENANCE_SCHEDULE"`
}

func DefaultConfig() *Config {
	def := brain.DefaultOptions()
	return &Config{
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Token:         "",
				AllowChannels: FlexibleStringSlice{},
				ReplyChance:   0.02,
			},
		},
		Brain: BrainConfig{
			DataPath:            "~/.plauderbot/brain.sqlite",
			Order:               def.Order,
			Lowercase:           def.Lowercase,
			DecayHalfLifeDays:   60,
			MaxPairsPerKey:      def.MaxPairsPerKey,
			MaxVocabulary:       def.MaxVocabulary,
			MaxLen:              def.MaxLen,
			MinLen:              def.MinLen,
			Temperature:         def.Temperature,
			SimilarityThreshold: def.SimilarityThreshold,
			TopK:                def.TopK,
			PreferRecentHours:   7 * 24,
			SteerToInput:        def.SteerToInput,
			SanitizeMentions:    def.SanitizeMentions,
			MergeWindowMS:       int(def.MergeWindowMS),
			LookbackN:           def.LookbackN,
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18790,
		},
		Cron: CronConfig{
			Enabled:             true,
			MaintenanceSchedule: "0 4 * * *",
		},
		LogLevel: "info",
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// BrainDataPath returns the brain database path with ~ expanded.
func (c *Config) BrainDataPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Brain.DataPath)
}

// BrainOptions maps the config surface onto engine options.
func (c *Config) BrainOptions() brain.Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.Brain
	return brain.Options{
		Order:               b.Order,
		Lowercase:           b.Lowercase,
		DecayHalfLifeMS:     (time.Duration(b.DecayHalfLifeDays) * 24 * time.Hour).Milliseconds(),
		MaxPairsPerKey:      b.MaxPairsPerKey,
		MaxVocabulary:       b.MaxVocabulary,
		MaxLen:              b.MaxLen,
		MinLen:              b.MinLen,
		Temperature:         b.Temperature,
		SimilarityThreshold: b.SimilarityThreshold,
		TopK:                b.TopK,
		PreferRecentMS:      (time.Duration(b.PreferRecentHours) * time.Hour).Milliseconds(),
		SteerToInput:        b.SteerToInput,
		SanitizeMentions:    b.SanitizeMentions,
		MergeWindowMS:       int64(b.MergeWindowMS),
		LookbackN:           b.LookbackN,
	}
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
