package llms

// Message is a single prompt message sent to a language model.
type Message struct {
	Role    MessageRole
	Content string
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// PromptMessages returns the messages for a single-shot prompt: the system
// instruction, when set, followed by the user prompt.
func PromptMessages(prompt string, systemInstruction string) []Message {
	messages := make([]Message, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, Message{Role: MessageRoleSystem, Content: systemInstruction})
	}
	return append(messages, Message{Role: MessageRoleUser, Content: prompt})
}
