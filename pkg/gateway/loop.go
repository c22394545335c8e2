package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/plauderbot/plauderbot/pkg/brain"
	"github.com/plauderbot/plauderbot/pkg/bus"
	"github.com/plauderbot/plauderbot/pkg/logger"
)

// Loop is the single consumer of the inbound bus. One goroutine
// drains messages in arrival order, which keeps per-channel
// ingestion sequential for the engine's merge and adjacency logic.
type Loop struct {
	bus         *bus.MessageBus
	engine      *brain.Engine
	replyChance float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLoop wires the reply loop. replyChance is the probability of an
// unprompted answer to a regular message; mentions always answer. A
// nil rng gets a time-seeded source.
func NewLoop(messageBus *bus.MessageBus, engine *brain.Engine, replyChance float64, rng *rand.Rand) *Loop {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if replyChance < 0 {
		replyChance = 0
	}
	if replyChance > 1 {
		replyChance = 1
	}
	return &Loop{
		bus:         messageBus,
		engine:      engine,
		replyChance: replyChance,
		rng:         rng,
	}
}

// Run consumes inbound messages until the context is cancelled or
// the bus closes.
func (l *Loop) Run(ctx context.Context) {
	logger.InfoC("gateway", "Reply loop started")
	for {
		msg, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			logger.InfoC("gateway", "Reply loop stopped")
			return
		}
		l.Process(ctx, msg)
	}
}

// Process learns from one message and answers it when triggered.
// Storage errors are logged, never fatal to the loop.
func (l *Loop) Process(ctx context.Context, msg bus.InboundMessage) {
	if err := l.engine.Learn(ctx, brain.Message{
		ID:        msg.MessageID,
		Content:   msg.Content,
		AuthorID:  msg.SenderID,
		ChannelID: msg.ChatID,
		ReplyToID: msg.ReplyToID,
		TS:        msg.TimestampMS,
	}); err != nil {
		logger.ErrorCF("gateway", "Failed to learn from message", map[string]any{
			"message_id": msg.MessageID,
			"error":      err.Error(),
		})
	}

	if !l.shouldReply(msg) {
		return
	}

	out, err := l.engine.GenerateSentence(ctx, msg.Content)
	if err != nil {
		logger.ErrorCF("gateway", "Failed to generate reply", map[string]any{
			"message_id": msg.MessageID,
			"error":      err.Error(),
		})
		return
	}
	if out == "" {
		// Nothing learned yet, or the walk produced nothing. Stay quiet.
		return
	}

	reply := bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: out,
	}
	if msg.IsMention {
		reply.ReplyToID = msg.MessageID
	}
	l.bus.PublishOutbound(reply)
}

func (l *Loop) shouldReply(msg bus.InboundMessage) bool {
	if msg.IsMention {
		return true
	}
	if l.replyChance <= 0 {
		return false
	}
	l.rngMu.Lock()
	defer l.rngMu.Unlock()
	return l.rng.Float64() < l.replyChance
}
