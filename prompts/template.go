package prompts

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingVariable = errors.New("prompts: missing input variable")

// PromptTemplate holds a template string with {{.variable}} placeholders
// and the names of the variables it expects.
type PromptTemplate struct {
	Template       string
	InputVariables []string
}

// NewPromptTemplate creates a prompt template from a template string and
// the variable names it references.
func NewPromptTemplate(template string, inputVariables []string) PromptTemplate {
	return PromptTemplate{
		Template:       template,
		InputVariables: inputVariables,
	}
}

// Format renders the template with the given values. Every declared input
// variable must be present in values.
func (p PromptTemplate) Format(values map[string]any) (string, error) {
	result := p.Template
	for _, name := range p.InputVariables {
		value, ok := values[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingVariable, name)
		}
		placeholder := "{{." + name + "}}"
		result = strings.ReplaceAll(result, placeholder, fmt.Sprintf("%v", value))
	}
	return result, nil
}
