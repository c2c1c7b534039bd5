package agent

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	batypes "github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
)

// PromptOverrideConfig replaces or augments the agent's default prompts, one
// slot per prompt type.
type PromptOverrideConfig struct {
	Slots []PromptSlot `json:"promptConfigurations"`
	// OverrideLambda is the ARN of a custom parser Lambda (optional).
	OverrideLambda string `json:"overrideLambda,omitempty"`
}

type PromptSlot struct {
	Type         batypes.PromptType   `json:"promptType"`
	State        batypes.PromptState  `json:"promptState,omitempty"`
	CreationMode batypes.CreationMode `json:"promptCreationMode,omitempty"`
	ParserMode   batypes.CreationMode `json:"parserMode,omitempty"`
	Inference    *InferenceConfig     `json:"inferenceConfiguration,omitempty"`

	// Exactly one of BaseTemplate or Template is set when CreationMode is
	// OVERRIDDEN.
	BaseTemplate string              `json:"basePromptTemplate,omitempty"`
	Template     *StructuredTemplate `json:"template,omitempty"`

	// InputVariables declares the placeholders a flat BaseTemplate may use.
	// When empty the flat template is not checked.
	InputVariables []string `json:"inputVariables,omitempty"`
}

type InferenceConfig struct {
	Temperature   *float32 `json:"temperature,omitempty"`
	TopP          *float32 `json:"topP,omitempty"`
	TopK          *int32   `json:"topK,omitempty"`
	MaximumLength *int32   `json:"maximumLength,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

// Validate checks the structural invariants of the override. Every problem is
// reported as a *ConfigurationError.
func (c PromptOverrideConfig) Validate() error {
	if len(c.Slots) == 0 {
		return &ConfigurationError{Reason: "no prompt configurations"}
	}

	seen := map[batypes.PromptType]bool{}
	for i, s := range c.Slots {
		if err := s.validate(); err != nil {
			return &ConfigurationError{Reason: fmt.Sprintf("slot %d (%s): %s", i, s.Type, err)}
		}
		if seen[s.Type] {
			return &ConfigurationError{Reason: fmt.Sprintf("slot %d: duplicate prompt type %s", i, s.Type)}
		}
		seen[s.Type] = true
	}
	return nil
}

func (s PromptSlot) validate() error {
	if !slices.Contains(s.Type.Values(), s.Type) {
		return fmt.Errorf("unknown prompt type %q", s.Type)
	}
	if s.State != "" && !slices.Contains(s.State.Values(), s.State) {
		return fmt.Errorf("unknown prompt state %q", s.State)
	}
	if s.CreationMode != "" && !slices.Contains(s.CreationMode.Values(), s.CreationMode) {
		return fmt.Errorf("unknown creation mode %q", s.CreationMode)
	}
	if s.ParserMode != "" && !slices.Contains(s.ParserMode.Values(), s.ParserMode) {
		return fmt.Errorf("unknown parser mode %q", s.ParserMode)
	}

	hasFlat := strings.TrimSpace(s.BaseTemplate) != ""
	hasStructured := s.Template != nil
	switch {
	case hasFlat && hasStructured:
		return fmt.Errorf("both basePromptTemplate and template are set")
	case s.CreationMode == batypes.CreationModeOverridden && !hasFlat && !hasStructured:
		return fmt.Errorf("creation mode OVERRIDDEN requires a template")
	case s.CreationMode != batypes.CreationModeOverridden && (hasFlat || hasStructured):
		return fmt.Errorf("template set but creation mode is %q", s.CreationMode)
	}

	if s.Inference != nil {
		if err := s.Inference.validate(); err != nil {
			return err
		}
	}

	if hasStructured {
		return s.Template.validate()
	}
	if hasFlat && len(s.InputVariables) > 0 {
		return checkVariables(s.BaseTemplate, s.InputVariables)
	}
	return nil
}

func (ic InferenceConfig) validate() error {
	if ic.Temperature != nil && (*ic.Temperature < 0 || *ic.Temperature > 1) {
		return fmt.Errorf("temperature %v out of range [0,1]", *ic.Temperature)
	}
	if ic.TopP != nil && (*ic.TopP < 0 || *ic.TopP > 1) {
		return fmt.Errorf("topP %v out of range [0,1]", *ic.TopP)
	}
	if ic.TopK != nil && (*ic.TopK < 0 || *ic.TopK > 500) {
		return fmt.Errorf("topK %d out of range [0,500]", *ic.TopK)
	}
	if ic.MaximumLength != nil && (*ic.MaximumLength < 0 || *ic.MaximumLength > 4096) {
		return fmt.Errorf("maximumLength %d out of range [0,4096]", *ic.MaximumLength)
	}
	if len(ic.StopSequences) > 4 {
		return fmt.Errorf("at most 4 stop sequences, got %d", len(ic.StopSequences))
	}
	return nil
}

// ToSDK validates the override and converts it to the control-plane type.
func (c PromptOverrideConfig) ToSDK() (*batypes.PromptOverrideConfiguration, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	out := &batypes.PromptOverrideConfiguration{
		PromptConfigurations: make([]batypes.PromptConfiguration, 0, len(c.Slots)),
	}
	if c.OverrideLambda != "" {
		out.OverrideLambda = aws.String(c.OverrideLambda)
	}

	for _, s := range c.Slots {
		pc := batypes.PromptConfiguration{
			PromptType:         s.Type,
			PromptState:        s.State,
			PromptCreationMode: s.CreationMode,
			ParserMode:         s.ParserMode,
		}
		switch {
		case s.Template != nil:
			body, err := s.Template.Render()
			if err != nil {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("%s: render template: %v", s.Type, err)}
			}
			pc.BasePromptTemplate = aws.String(body)
		case s.BaseTemplate != "":
			pc.BasePromptTemplate = aws.String(s.BaseTemplate)
		}
		if s.Inference != nil {
			pc.InferenceConfiguration = &batypes.InferenceConfiguration{
				Temperature:   s.Inference.Temperature,
				TopP:          s.Inference.TopP,
				TopK:          s.Inference.TopK,
				MaximumLength: s.Inference.MaximumLength,
				StopSequences: s.Inference.StopSequences,
			}
		}
		out.PromptConfigurations = append(out.PromptConfigurations, pc)
	}
	return out, nil
}

// DefaultOverride wraps t in the orchestration slot the agents are deployed
// with: enabled, overridden, default parser, deterministic sampling.
func DefaultOverride(t *StructuredTemplate) PromptOverrideConfig {
	return PromptOverrideConfig{
		Slots: []PromptSlot{{
			Type:         batypes.PromptTypeOrchestration,
			State:        batypes.PromptStateEnabled,
			CreationMode: batypes.CreationModeOverridden,
			ParserMode:   batypes.CreationModeDefault,
			Inference: &InferenceConfig{
				Temperature:   aws.Float32(0),
				TopP:          aws.Float32(1),
				TopK:          aws.Int32(1),
				MaximumLength: aws.Int32(2048),
				StopSequences: []string{"Human:"},
			},
			Template: t,
		}},
	}
}

// WithBaseTemplate returns a copy of c whose orchestration slot uses the flat
// template body instead of whatever template it had.
func (c PromptOverrideConfig) WithBaseTemplate(body string) PromptOverrideConfig {
	out := PromptOverrideConfig{OverrideLambda: c.OverrideLambda, Slots: slices.Clone(c.Slots)}
	for i := range out.Slots {
		if out.Slots[i].Type == batypes.PromptTypeOrchestration {
			out.Slots[i].Template = nil
			out.Slots[i].BaseTemplate = body
			out.Slots[i].CreationMode = batypes.CreationModeOverridden
			return out
		}
	}
	return out
}
