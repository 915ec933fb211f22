package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/binding"
	"github.com/bluebird-io/portal/internal/forms"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/models"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your account",
	Long:  "Sign in with email and password. Missing values are prompted for.",
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, _ []string) error {
	form := forms.LoginForm{}
	form.Email, _ = cmd.Flags().GetString("email")
	form.Password, _ = cmd.Flags().GetString("password")

	if len(form.Email) == 0 || len(form.Password) == 0 {
		fmt.Println(titleStyle.Render(cfg.Site.Name))

		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Email").
					Value(&form.Email).
					Validate(requiredField(i18n.EmailRequired)),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&form.Password).
					Validate(requiredField(i18n.PasswordRequired)),
			),
		).Run()
		if err != nil {
			return fmt.Errorf("login prompt cancelled: %w", err)
		}
	}

	if err := form.Validate(); err != nil {
		return rejectForm(err)
	}

	result, err := runWithSpinner(cmd.Context(), "Signing in...",
		func(ctx context.Context, view *binding.Binding) models.Result {
			return view.Login(ctx, form.Email, form.Password)
		})
	if err != nil {
		return err
	}

	if err := printResult(result); err != nil {
		return err
	}

	printUser(manager.GetUser())
	return nil
}

// printResult reports a manager result and turns a failure into
// errOperationFailed.
func printResult(result models.Result) error {
	if !result.Success {
		fmt.Println(errorStyle.Render(result.Message))
		return errOperationFailed
	}

	fmt.Println(successStyle.Render(result.Message))
	return nil
}

func rejectForm(err error) error {
	fmt.Println(warningStyle.Render(forms.Message(err, messages)))
	return errOperationFailed
}

// requiredField is a huh validator that rejects blank input with the
// localized message for key.
func requiredField(key string) func(string) error {
	return func(value string) error {
		if len(value) == 0 {
			return errors.New(messages.T(key))
		}
		return nil
	}
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().StringP("password", "p", "", "Account password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd)
}
