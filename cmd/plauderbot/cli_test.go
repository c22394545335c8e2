package main

import (
	"bytes"
	"strings"
	"testing"
)

func runRootCommandForTest(args ...string) (string, error) {
	root := buildRootCommand(false)
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := buildRootCommand(true)

	want := []string{"onboard", "chat", "reply", "learn", "gateway", "reset", "status", "version", "docs"}
	have := map[string]bool{}
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestRootCommandWithoutSubcommandFails(t *testing.T) {
	output, err := runRootCommandForTest()
	if err == nil {
		t.Fatalf("bare invocation must error\nOutput:\n%s", output)
	}
	if !strings.Contains(err.Error(), "subcommand is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHelpMentionsCoreCommands(t *testing.T) {
	output, err := runRootCommandForTest("--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, name := range []string{"chat", "gateway", "learn", "status"} {
		if !strings.Contains(output, name) {
			t.Fatalf("help output missing %q:\n%s", name, output)
		}
	}
}

func TestChatCommandFlags(t *testing.T) {
	root := buildRootCommand(false)
	chat, _, err := root.Find([]string{"chat"})
	if err != nil {
		t.Fatalf("find chat: %v", err)
	}
	if chat.Flags().Lookup("message") == nil {
		t.Fatalf("chat must expose --message")
	}
	if chat.Flags().ShorthandLookup("m") == nil {
		t.Fatalf("chat must expose -m shorthand")
	}
}

func TestConfigReferenceCoversBrainKeys(t *testing.T) {
	md, err := buildConfigReferenceMarkdown()
	if err != nil {
		t.Fatalf("buildConfigReferenceMarkdown: %v", err)
	}
	for _, key := range []string{
		"brain.order",
		"brain.similarity_threshold",
		"channels.discord.reply_chance",
		"cron.maintenance_schedule",
	} {
		if !strings.Contains(md, key) {
			t.Fatalf("config reference missing %q:\n%s", key, md)
		}
	}
}
