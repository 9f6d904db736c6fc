package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrPasswordMismatch indicates passwords don't match.
var ErrPasswordMismatch = errors.New("passwords do not match")

// Password prompts for a masked password.
func Password(label string) (string, error) {
	result, err := (&promptui.Prompt{Label: label, Mask: '*'}).Run()
	return result, wrapError(err)
}

// PasswordWithValidation prompts for a masked password of at least minLength characters.
func PasswordWithValidation(label string, minLength int) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Mask:     '*',
		Validate: MinLength(minLength),
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// MinLength returns a validator rejecting passwords shorter than n.
func MinLength(n int) func(string) error {
	return func(input string) error {
		if len(input) < n {
			return fmt.Errorf("password must be at least %d characters", n)
		}
		return nil
	}
}

// NewPassword prompts for a password and its confirmation.
func NewPassword(minLength int) (string, error) {
	password, err := PasswordWithValidation("Password", minLength)
	if err != nil {
		return "", err
	}

	confirm, err := Password("Confirm password")
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}
