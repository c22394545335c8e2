package channels

import (
	"context"
	"testing"

	"github.com/plauderbot/plauderbot/pkg/bus"
)

func TestBaseChannelAllowList(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	open := NewBaseChannel("discord", mb, nil)
	if !open.IsAllowed("anything") {
		t.Fatalf("empty allow-list must allow every chat")
	}

	scoped := NewBaseChannel("discord", mb, []string{"#123", " 456 ", ""})
	if !scoped.IsAllowed("123") || !scoped.IsAllowed("456") {
		t.Fatalf("listed chats must be allowed")
	}
	if scoped.IsAllowed("789") {
		t.Fatalf("unlisted chat must be rejected")
	}
}

func TestBaseChannelPublishRespectsAllowList(t *testing.T) {
	mb := bus.NewMessageBus()
	defer mb.Close()

	c := NewBaseChannel("discord", mb, []string{"123"})
	c.PublishInbound(bus.InboundMessage{MessageID: "m1", ChatID: "999", Content: "nein"})
	c.PublishInbound(bus.InboundMessage{MessageID: "m2", ChatID: "123", Content: "ja"})

	got, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatalf("expected one message")
	}
	if got.MessageID != "m2" || got.Channel != "discord" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestSplitMessageShortContent(t *testing.T) {
	chunks := splitMessage("kurz und knapp", 1500)
	if len(chunks) != 1 || chunks[0] != "kurz und knapp" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitMessageBreaksAtSpaces(t *testing.T) {
	content := ""
	for i := 0; i < 100; i++ {
		content += "wort "
	}
	chunks := splitMessage(content, 120)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 120 {
			t.Fatalf("chunk exceeds limit: %d", len(c))
		}
	}
}
