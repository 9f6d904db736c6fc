package prompt

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
)

var (
	// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
	ErrAborted = errors.New("aborted")

	errRequired     = errors.New("value is required")
	errInvalidEmail = errors.New("enter a valid email address")

	validate = validator.New()
)

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

func run(p promptui.Prompt) (string, error) {
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// Input prompts for text input with a default value.
func Input(label, defaultValue string) (string, error) {
	return run(promptui.Prompt{Label: label, Default: defaultValue})
}

// InputRequired prompts until a non-empty value is entered.
func InputRequired(label string) (string, error) {
	return run(promptui.Prompt{Label: label, Validate: requireNonEmpty})
}

// InputOptional prompts for optional text input.
// Returns empty string if user just presses Enter.
func InputOptional(label string) (string, error) {
	return run(promptui.Prompt{Label: label + " (optional)"})
}

// InputEmail prompts until a syntactically valid email address is entered.
func InputEmail(label string) (string, error) {
	return run(promptui.Prompt{Label: label, Validate: ValidateEmail})
}

// ValidateEmail is the check InputEmail applies to each keystroke.
func ValidateEmail(input string) error {
	if err := validate.Var(strings.TrimSpace(input), "required,email"); err != nil {
		return errInvalidEmail
	}
	return nil
}

func requireNonEmpty(input string) error {
	if strings.TrimSpace(input) == "" {
		return errRequired
	}
	return nil
}
