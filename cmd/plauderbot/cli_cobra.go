package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	root := buildRootCommand(true)
	if err := root.Execute(); err != nil {
		return err
	}
	return nil
}

func buildRootCommand(includeDocsCommand bool) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "plauderbot",
		Short: "Conversational Discord companion that learns to talk like its community",
		Long: strings.TrimSpace(`plauderbot is a self-contained Discord chat companion.

It learns phrasing and conversation pairs from the channels it lives in and
answers with short sentences assembled from what it has heard. No external
AI service is involved; everything runs from a local SQLite database.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newReplyCommand())
	root.AddCommand(newLearnCommand())
	root.AddCommand(newGatewayCommand())
	root.AddCommand(newResetCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	if includeDocsCommand {
		docsCmd := newDocsCommand(func() *cobra.Command { return buildRootCommand(false) })
		root.AddCommand(docsCmd)
	}

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.plauderbot config and brain database location",
		Long:    "Create the default configuration file for a new plauderbot installation.",
		Example: "  plauderbot onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newChatCommand() *cobra.Command {
	var (
		message string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot locally without Discord",
		Long:  "Run an interactive local chat session. The bot learns from your lines the same way it learns from Discord messages.",
		Example: strings.Join([]string{
			"  plauderbot chat",
			"  plauderbot chat --message \"wie geht's?\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				enableDebug()
			}
			return chatCmd(message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message instead of an interactive session")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func newReplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reply <text>",
		Short:   "Generate a single reply without learning from the input",
		Args:    cobra.MinimumNArgs(1),
		Example: "  plauderbot reply \"was machst du heute?\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			return replyCmd(strings.Join(args, " "))
		},
	}
}

func newLearnCommand() *cobra.Command {
	var channelID string

	cmd := &cobra.Command{
		Use:   "learn <transcript.jsonl>",
		Short: "Bulk-import a chat transcript into the brain",
		Long: strings.TrimSpace(`Import a JSONL transcript, one message object per line:

  {"content":"...","author_id":"...","channel_id":"...","reply_to_id":"...","ts":1700000000000}

Missing ids are generated, missing timestamps default to now. Lines are
learned in file order, so adjacency pairing works like live ingestion.`),
		Args:    cobra.ExactArgs(1),
		Example: "  plauderbot learn export.jsonl --channel 123456789",
		RunE: func(cmd *cobra.Command, args []string) error {
			return learnCmd(args[0], channelID)
		},
	}

	cmd.Flags().StringVarP(&channelID, "channel", "c", "", "Fallback channel id for lines without one")
	return cmd
}

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Run the Discord gateway + health server",
		Long:    "Start the Discord connector, reply loop, maintenance scheduler, and health endpoints.",
		Example: "  plauderbot gateway --debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				enableDebug()
			}
			return gatewayCmd()
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "reset",
		Short:   "Wipe the trained language model",
		Long:    "Delete every trained word transition. Stored messages and conversation pairs are kept.",
		Example: "  plauderbot reset --yes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetCmd(yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and brain database statistics",
		Example: "  plauderbot status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCmd()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  plauderbot version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
