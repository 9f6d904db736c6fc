package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/internal/cli/prompt"
	"github.com/marmos91/authsession/pkg/apiclient"
	"github.com/marmos91/authsession/pkg/credentials"
)

var (
	registerType      string
	registerEmail     string
	registerFirstName string
	registerLastName  string
	registerPhone     string
	registerCompany   string
	registerPassword  string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Long: `Create an individual or company account, then log in with it.

Missing values are prompted for.

Examples:
  # Interactive registration
  authctl register

  # Company account
  authctl register --type company --company "Acme Ltd" --email ops@acme.test`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerType, "type", "", "Account type (individual|company)")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "Last name")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "Phone number")
	registerCmd.Flags().StringVar(&registerCompany, "company", "", "Company name (company accounts)")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Account password")
}

func runRegister(cmd *cobra.Command, args []string) error {
	req, err := collectRegistration()
	if err != nil {
		return cmdutil.HandleAbort(err)
	}

	ctx := cmd.Context()
	rt, err := cmdutil.Open(ctx, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	if err := rt.Manager.Register(ctx, req); err != nil {
		if re, ok := apiclient.AsRequestError(err); ok && re.IsConflict() {
			return fmt.Errorf("registration failed: %w (try 'authctl login' instead)", err)
		}
		return fmt.Errorf("registration failed: %w", err)
	}

	printWelcome(rt.Manager.Session())
	return nil
}

func collectRegistration() (apiclient.RegisterRequest, error) {
	var req apiclient.RegisterRequest
	var err error
	// The optional phone prompt only runs when nothing was passed as a flag.
	interactive := registerEmail == "" && registerPassword == ""

	customerType := registerType
	if customerType == "" {
		customerType, err = prompt.Select("Account type", []prompt.SelectOption{
			{Label: "Individual", Value: string(credentials.CustomerIndividual), Description: "A personal account"},
			{Label: "Company", Value: string(credentials.CustomerCompany), Description: "An account for a business"},
		})
		if err != nil {
			return req, err
		}
	}
	req.CustomerType, err = parseCustomerType(customerType)
	if err != nil {
		return req, err
	}

	if req.Email, err = valueOrPrompt(registerEmail, func() (string, error) { return prompt.InputEmail("Email") }); err != nil {
		return req, err
	}
	if err := prompt.ValidateEmail(req.Email); err != nil {
		return req, err
	}
	if req.FirstName, err = valueOrPrompt(registerFirstName, func() (string, error) { return prompt.InputRequired("First name") }); err != nil {
		return req, err
	}
	if req.LastName, err = valueOrPrompt(registerLastName, func() (string, error) { return prompt.InputRequired("Last name") }); err != nil {
		return req, err
	}
	req.Phone = registerPhone
	if req.Phone == "" && interactive {
		if req.Phone, err = prompt.InputOptional("Phone (optional)"); err != nil {
			return req, err
		}
	}
	if req.CustomerType == credentials.CustomerCompany {
		if req.CompanyName, err = valueOrPrompt(registerCompany, func() (string, error) { return prompt.InputRequired("Company name") }); err != nil {
			return req, err
		}
	}
	if req.Password, err = valueOrPrompt(registerPassword, func() (string, error) { return prompt.NewPassword(cmdutil.MinPasswordLength) }); err != nil {
		return req, err
	}
	if err := prompt.MinLength(cmdutil.MinPasswordLength)(req.Password); err != nil {
		return req, err
	}

	return req, nil
}

func parseCustomerType(s string) (credentials.CustomerType, error) {
	switch credentials.CustomerType(s) {
	case credentials.CustomerIndividual, credentials.CustomerCompany:
		return credentials.CustomerType(s), nil
	default:
		return "", fmt.Errorf("invalid account type %q (valid: individual, company)", s)
	}
}

func valueOrPrompt(value string, ask func() (string, error)) (string, error) {
	if value != "" {
		return value, nil
	}
	return ask()
}
