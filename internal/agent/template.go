package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// StructuredTemplate is a chat-style prompt: a system block followed by role
// messages. It renders to the JSON document the control plane accepts as a
// base prompt template.
type StructuredTemplate struct {
	System         string            `json:"system"`
	Messages       []TemplateMessage `json:"messages"`
	InputVariables []string          `json:"inputVariables,omitempty"`
}

type TemplateMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type renderedContent struct {
	Text string `json:"text"`
}

type renderedMessage struct {
	Role    string            `json:"role"`
	Content []renderedContent `json:"content"`
}

type renderedTemplate struct {
	System   string            `json:"system"`
	Messages []renderedMessage `json:"messages"`
}

// Placeholders are written either {{name}} or $name$.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}|\$([A-Za-z_][A-Za-z0-9_]*)\$`)

// Placeholders returns the distinct variable names referenced by text, in
// order of first appearance.
func Placeholders(text string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func checkVariables(text string, declared []string) error {
	for _, v := range declared {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty input variable name")
		}
	}
	for _, name := range Placeholders(text) {
		if !slices.Contains(declared, name) {
			return fmt.Errorf("template references undeclared variable %q", name)
		}
	}
	return nil
}

func (t *StructuredTemplate) validate() error {
	if strings.TrimSpace(t.System) == "" && len(t.Messages) == 0 {
		return fmt.Errorf("structured template has no system text or messages")
	}
	for i, m := range t.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return checkVariables(t.body(), t.InputVariables)
}

// body concatenates every text field so placeholder checks see all of it.
func (t *StructuredTemplate) body() string {
	var sb strings.Builder
	sb.WriteString(t.System)
	for _, m := range t.Messages {
		sb.WriteByte('\n')
		sb.WriteString(m.Text)
	}
	return sb.String()
}

// Render produces the JSON base prompt template.
func (t *StructuredTemplate) Render() (string, error) {
	doc := renderedTemplate{System: t.System, Messages: make([]renderedMessage, 0, len(t.Messages))}
	for _, m := range t.Messages {
		doc.Messages = append(doc.Messages, renderedMessage{
			Role:    m.Role,
			Content: []renderedContent{{Text: m.Text}},
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// ParseTemplateDocument reads a stored template. A JSON object with system or
// messages is read as a structured template (content blocks joined
// with newlines); anything else is returned as a flat template body. A structured
// document without inputVariables declares exactly what it references.
func ParseTemplateDocument(raw []byte) (*StructuredTemplate, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, "", &ConfigurationError{Reason: "empty template document"}
	}
	if trimmed[0] != '{' {
		return nil, string(trimmed), nil
	}

	var doc struct {
		System         *string  `json:"system"`
		InputVariables []string `json:"inputVariables"`
		Messages       []struct {
			Role    string            `json:"role"`
			Text    string            `json:"text"`
			Content []renderedContent `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, "", &ConfigurationError{Reason: fmt.Sprintf("template document: %v", err)}
	}
	if doc.System == nil && len(doc.Messages) == 0 {
		return nil, string(trimmed), nil
	}

	t := &StructuredTemplate{InputVariables: doc.InputVariables}
	if doc.System != nil {
		t.System = *doc.System
	}
	for _, m := range doc.Messages {
		parts := make([]string, 0, len(m.Content)+1)
		if m.Text != "" {
			parts = append(parts, m.Text)
		}
		for _, c := range m.Content {
			parts = append(parts, c.Text)
		}
		text := strings.Join(parts, "\n")
		t.Messages = append(t.Messages, TemplateMessage{Role: m.Role, Text: text})
	}
	if len(t.InputVariables) == 0 {
		t.InputVariables = Placeholders(t.body())
	}
	return t, "", nil
}

// OrchestrationVariables are the placeholders the agent runtime fills in an
// orchestration prompt.
var OrchestrationVariables = []string{
	"instruction",
	"respond_to_user_follow_up",
	"final_answer_guideline",
	"respond_to_user_final_answer_guideline",
	"knowledge_base_additional_guideline",
	"respond_to_user_knowledge_base_additional_guideline",
	"memory_guideline",
	"memory_content",
	"memory_action_guideline",
	"prompt_session_attributes",
	"question",
	"agent_scratchpad",
}

const defaultSystemPrompt = `{{instruction}}
You are a helpful assistant with tool/function calling capabilities.

Given the following tools/functions, respond with a JSON tool/function call with the arguments that best answer the given prompt. Respond in the format {"name": tool/function name, "parameters": dictionary of argument name and its value}. Do not use variables.

If a tool/function needs an input parameter, ask the user for it before calling that tool/function. You have access to a separate tool/function that you MUST use to ask the user questions{{respond_to_user_follow_up}}. Never call a tool/function before gathering every parameter it requires.

Pick the tools/functions that help answer the user's question, and keep using them until the original request is fully addressed. If you do not have the tools/functions needed for the request, say so and end the conversation.

When you receive a tool/function call response, use its output to format an answer to the original user question.

Provide your final answer to the user's question {{final_answer_guideline}}{{respond_to_user_final_answer_guideline}}.
{{knowledge_base_additional_guideline}}
{{respond_to_user_knowledge_base_additional_guideline}}
{{memory_guideline}}
{{memory_content}}
{{memory_action_guideline}}
{{prompt_session_attributes}}`

// DefaultOrchestrationTemplate is the built-in orchestration prompt used when
// no stored template is configured.
func DefaultOrchestrationTemplate() *StructuredTemplate {
	return &StructuredTemplate{
		System: defaultSystemPrompt,
		Messages: []TemplateMessage{
			{Role: "user", Text: "{{question}}"},
			{Role: "assistant", Text: "{{agent_scratchpad}}"},
		},
		InputVariables: slices.Clone(OrchestrationVariables),
	}
}
