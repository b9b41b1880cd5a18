package ai

// MessageRole identifies the author of a Message sent to a Generator.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a generation request.
type Message struct {
	Role    MessageRole
	Content string
}

// SystemMessage, UserMessage and AssistantMessage build a Message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// DefaultTemperature is used when no WithTemperature option is given.
const DefaultTemperature = 0.7

// GenerateOptions holds sampling parameters for one generation call.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int // zero leaves the provider default
}

// GenerateOption is a functional option for a generation call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// ApplyOptions resolves opts over the defaults.
func ApplyOptions(opts ...GenerateOption) GenerateOptions {
	o := GenerateOptions{Temperature: DefaultTemperature}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
