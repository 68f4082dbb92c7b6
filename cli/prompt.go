package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
)

// Terminal solicits parameter values interactively. It renders a
// select when the parameter restricts its values and a free-text input
// otherwise, hiding echo for sensitive parameters.
type Terminal struct{}

// NewTerminal creates the interactive input collaborator.
func NewTerminal() *Terminal {
	return &Terminal{}
}

// Solicit blocks until the user answers or the context is done.
func (t *Terminal) Solicit(ctx context.Context, prompt string, hideEcho bool, choices []string) (string, error) {
	var answer string
	form := huh.NewForm(huh.NewGroup(buildField(prompt, hideEcho, choices, &answer)))
	if err := form.RunWithContext(ctx); err != nil {
		return "", fmt.Errorf("prompt for %q aborted: %w", prompt, err)
	}
	return answer, nil
}

func buildField(prompt string, hideEcho bool, choices []string, answer *string) huh.Field {
	if len(choices) > 0 {
		options := make([]huh.Option[string], len(choices))
		for i, choice := range choices {
			options[i] = huh.NewOption(choice, choice)
		}
		return huh.NewSelect[string]().
			Title(prompt).
			Options(options...).
			Value(answer)
	}
	input := huh.NewInput().
		Title(prompt).
		Value(answer)
	if hideEcho {
		input = input.EchoMode(huh.EchoModePassword)
	}
	return input
}
