// Plauderbot - Discord companion that learns to talk like its community
// License: MIT
//
// Copyright (c) 2026 Plauderbot contributors

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/plauderbot/plauderbot/pkg/brain"
	"github.com/plauderbot/plauderbot/pkg/bus"
	"github.com/plauderbot/plauderbot/pkg/channels"
	"github.com/plauderbot/plauderbot/pkg/config"
	"github.com/plauderbot/plauderbot/pkg/cron"
	"github.com/plauderbot/plauderbot/pkg/gateway"
	"github.com/plauderbot/plauderbot/pkg/health"
	"github.com/plauderbot/plauderbot/pkg/logger"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "plauderbot"

// formatVersion returns the version string with optional git commit
func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// formatBuildInfo returns build time and go version info
func formatBuildInfo() (build string, goVer string) {
	if buildTime != "" {
		build = buildTime
	}
	goVer = goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	build, goVer := formatBuildInfo()
	if build != "" {
		fmt.Printf("  Build: %s\n", build)
	}
	if goVer != "" {
		fmt.Printf("  Go: %s\n", goVer)
	}
}

func main() {
	if err := executeCLI(); err != nil {
		logger.Sync()
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	logger.Sync()
}

func enableDebug() {
	logger.SetLevel(logger.DEBUG)
	fmt.Println("🔍 Debug mode enabled")
}

func applyLogLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn", "warning":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".plauderbot", "config.json")
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

func validateRuntimeConfig(cfg *config.Config, requireDiscord bool) error {
	if requireDiscord && strings.TrimSpace(cfg.Channels.Discord.Token) == "" {
		return fmt.Errorf("channels.discord.token is required in %s or PLAUDERBOT_CHANNELS_DISCORD_TOKEN", getConfigPath())
	}
	return nil
}

// openEngine opens the brain database from the configured path and
// builds the engine on top of it. The caller closes the store.
func openEngine(cfg *config.Config) (*brain.Engine, *brain.Store, error) {
	store, err := brain.NewStore(cfg.BrainDataPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open brain database: %w", err)
	}
	eng, err := brain.New(store, cfg.BrainOptions(), nil)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("initialize engine: %w", err)
	}
	return eng, store, nil
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		fmt.Print("Overwrite? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Printf("Error reading input: %v\n", readErr)
			fmt.Println("Aborted.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add your Discord bot token to channels.discord.token in", configPath)
	fmt.Println("  2. Optionally scope learning with channels.discord.allow_channels")
	fmt.Println("  3. Teach it locally: plauderbot chat")
	fmt.Println("  4. Or import history: plauderbot learn export.jsonl")
	fmt.Println("  5. Run the gateway: plauderbot gateway")
	return nil
}

func chatCmd(message string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if strings.TrimSpace(message) != "" {
		reply, err := chatTurn(eng, message)
		if err != nil {
			return err
		}
		printChatReply(reply)
		return nil
	}

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", appName)
	interactiveMode(eng)
	return nil
}

// chatTurn learns from one user line and generates the answer, the
// same sequence the gateway loop runs per Discord message.
func chatTurn(eng *brain.Engine, line string) (string, error) {
	ctx := context.Background()
	if err := eng.Learn(ctx, brain.Message{
		ID:        uuid.NewString(),
		Content:   line,
		AuthorID:  "cli-user",
		ChannelID: "cli",
		TS:        time.Now().UnixMilli(),
	}); err != nil {
		return "", fmt.Errorf("learn: %w", err)
	}
	return eng.GenerateSentence(ctx, line)
}

func printChatReply(reply string) {
	if reply == "" {
		fmt.Printf("\n%s …(still listening, nothing to say yet)\n\n", appName)
		return
	}
	fmt.Printf("\n%s %s\n\n", appName, reply)
}

func interactiveMode(eng *brain.Engine) {
	prompt := fmt.Sprintf("%s You: ", appName)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".plauderbot_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})

	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(eng)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		reply, err := chatTurn(eng, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printChatReply(reply)
	}
}

func simpleInteractiveMode(eng *brain.Engine) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s You: ", appName)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		reply, err := chatTurn(eng, input)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printChatReply(reply)
	}
}

func replyCmd(input string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reply, err := eng.GenerateSentence(context.Background(), input)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if reply == "" {
		fmt.Println("(no reply; the brain has not learned enough yet)")
		return nil
	}
	fmt.Println(reply)
	return nil
}

// transcriptLine is one JSONL record of an imported chat export.
type transcriptLine struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	AuthorID  string `json:"author_id"`
	ChannelID string `json:"channel_id"`
	ReplyToID string `json:"reply_to_id"`
	TS        int64  `json:"ts"`
}

func learnCmd(path, fallbackChannel string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if fallbackChannel == "" {
		fallbackChannel = "import"
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var learned, skipped int
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec transcriptLine
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			fmt.Printf("  line %d: invalid JSON, skipped (%v)\n", lineNo, err)
			skipped++
			continue
		}
		if strings.TrimSpace(rec.Content) == "" {
			skipped++
			continue
		}

		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.AuthorID == "" {
			rec.AuthorID = "import-user"
		}
		if rec.ChannelID == "" {
			rec.ChannelID = fallbackChannel
		}
		if rec.TS == 0 {
			rec.TS = time.Now().UnixMilli()
		}

		if err := eng.Learn(ctx, brain.Message{
			ID:        rec.ID,
			Content:   rec.Content,
			AuthorID:  rec.AuthorID,
			ChannelID: rec.ChannelID,
			ReplyToID: rec.ReplyToID,
			TS:        rec.TS,
		}); err != nil {
			fmt.Printf("  line %d: learn failed, skipped (%v)\n", lineNo, err)
			skipped++
			continue
		}
		learned++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}

	fmt.Printf("Imported %d messages (%d skipped)\n", learned, skipped)
	fmt.Printf("Brain now holds %d messages, %d pairs, %d transitions, %d words\n",
		stats.Messages, stats.Pairs, stats.Transitions, stats.Vocabulary)
	return nil
}

func gatewayCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyLogLevel(cfg.LogLevel)
	if err := validateRuntimeConfig(cfg, true); err != nil {
		return err
	}

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := eng.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	fmt.Println("\n🧠 Brain status:")
	fmt.Printf("  • Messages: %d\n", stats.Messages)
	fmt.Printf("  • Pairs: %d under %d keys\n", stats.Pairs, stats.ParentKeys)
	fmt.Printf("  • Vocabulary: %d words, %d transitions\n", stats.Vocabulary, stats.Transitions)

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	replyLoop := gateway.NewLoop(msgBus, eng, cfg.Channels.Discord.ReplyChance, nil)

	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("create channel manager: %w", err)
	}

	var scheduler *cron.Scheduler
	if cfg.Cron.Enabled {
		scheduler, err = cron.NewScheduler(eng, cfg.Cron.MaintenanceSchedule)
		if err != nil {
			return fmt.Errorf("create maintenance scheduler: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channelManager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	fmt.Println("✓ Discord channel started")

	if scheduler != nil {
		scheduler.Start(ctx)
		fmt.Printf("✓ Maintenance scheduled (%s)\n", cfg.Cron.MaintenanceSchedule)
	}

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port)
	go func() {
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("health", "Health server error", map[string]any{"error": err.Error()})
		}
	}()
	healthServer.SetReady(true)
	fmt.Printf("✓ Health endpoints available at http://%s:%d/health and /ready\n", cfg.Gateway.Host, cfg.Gateway.Port)

	go replyLoop.Run(ctx)

	fmt.Printf("✓ Gateway started on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	healthServer.SetReady(false)
	healthServer.Stop(context.Background())
	if scheduler != nil {
		scheduler.Stop()
	}
	channelManager.StopAll(context.Background())
	fmt.Println("✓ Gateway stopped")
	return nil
}

func resetCmd(yes bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !yes {
		fmt.Print("This deletes the trained language model. Continue? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			fmt.Println("Aborted.")
			return nil
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := eng.ResetModel(context.Background()); err != nil {
		return fmt.Errorf("reset model: %w", err)
	}
	fmt.Println("Model reset. Messages and pairs were kept.")
	return nil
}

func statusCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	configPath := getConfigPath()

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n", formatVersion())
	build, _ := formatBuildInfo()
	if build != "" {
		fmt.Printf("Build: %s\n", build)
	}
	fmt.Println()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config:", configPath, "✓")
	} else {
		fmt.Println("Config:", configPath, "✗")
	}

	status := func(enabled bool) string {
		if enabled {
			return "✓"
		}
		return "not set"
	}
	discordReady := strings.TrimSpace(cfg.Channels.Discord.Token) != ""
	fmt.Println("Discord token:", status(discordReady))
	fmt.Printf("Reply chance: %.2f\n", cfg.Channels.Discord.ReplyChance)

	brainPath := cfg.BrainDataPath()
	if _, err := os.Stat(brainPath); err != nil {
		fmt.Println("Brain DB:", brainPath, "not initialized")
		return nil
	}
	fmt.Println("Brain DB:", brainPath, "✓")

	eng, store, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := eng.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	fmt.Printf("Messages: %d\n", stats.Messages)
	fmt.Printf("Pairs: %d under %d keys\n", stats.Pairs, stats.ParentKeys)
	fmt.Printf("Vocabulary: %d words\n", stats.Vocabulary)
	fmt.Printf("Transitions: %d\n", stats.Transitions)
	return nil
}
