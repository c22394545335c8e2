package bus

// InboundMessage is one chat message as delivered by a channel
// connector, before any cleaning.
type InboundMessage struct {
	Channel     string
	MessageID   string
	ChatID      string
	SenderID    string
	SenderName  string
	Content     string
	ReplyToID   string
	TimestampMS int64
	IsMention   bool
}

// OutboundMessage is a reply on its way back to a channel connector.
// ReplyToID, when set, asks the connector to attach a reply
// reference.
type OutboundMessage struct {
	Channel   string
	ChatID    string
	ReplyToID string
	Content   string
}
