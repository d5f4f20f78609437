package schema

type ChatMessageType string

const (
	ChatMessageTypeSystem ChatMessageType = "system"
	ChatMessageTypeHuman  ChatMessageType = "human"
	ChatMessageTypeAI     ChatMessageType = "ai"
)

// MessageContent is a single turn of a conversation.
type MessageContent struct {
	Role ChatMessageType
	Text string
}

func (mc MessageContent) String() string {
	return mc.Text
}

func NewSystemMessage(text string) MessageContent {
	return MessageContent{Role: ChatMessageTypeSystem, Text: text}
}

func NewHumanMessage(text string) MessageContent {
	return MessageContent{Role: ChatMessageTypeHuman, Text: text}
}

func NewAIMessage(text string) MessageContent {
	return MessageContent{Role: ChatMessageTypeAI, Text: text}
}
