package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/binding"
	"github.com/bluebird-io/portal/internal/forms"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/models"
)

var sendCodeCmd = &cobra.Command{
	Use:   "send-code [email]",
	Short: "Email a verification code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form := forms.SendCodeForm{}
		form.Type, _ = cmd.Flags().GetString("type")
		if len(args) > 0 {
			form.Email = args[0]
		}

		if len(form.Email) == 0 {
			err := huh.NewInput().
				Title("Email").
				Value(&form.Email).
				Validate(requiredField(i18n.EmailRequired)).
				Run()
			if err != nil {
				return fmt.Errorf("email prompt cancelled: %w", err)
			}
		}

		if err := form.Validate(); err != nil {
			return rejectForm(err)
		}

		result, err := sendCode(cmd.Context(), form.Email, form.CodeType())
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset a forgotten password",
	Long: `Reset the password for an account. A verification code is emailed first
unless --code is given.`,
	RunE: runResetPassword,
}

func runResetPassword(cmd *cobra.Command, _ []string) error {
	form := forms.ResetForm{}
	form.Email, _ = cmd.Flags().GetString("email")
	form.Code, _ = cmd.Flags().GetString("code")
	form.Password, _ = cmd.Flags().GetString("password")
	form.ConfirmPassword = form.Password

	if len(form.Email) == 0 {
		err := huh.NewInput().
			Title("Email").
			Value(&form.Email).
			Validate(requiredField(i18n.EmailRequired)).
			Run()
		if err != nil {
			return fmt.Errorf("email prompt cancelled: %w", err)
		}
	}

	if len(form.Code) == 0 {
		result, err := sendCode(cmd.Context(), form.Email, models.EmailCodeResetPassword)
		if err != nil {
			return err
		}
		if err := printResult(result); err != nil {
			return err
		}
	}

	var fields []huh.Field
	if len(form.Code) == 0 {
		fields = append(fields,
			huh.NewInput().
				Title("Verification code").
				Value(&form.Code).
				Validate(requiredField(i18n.CodeRequired)),
		)
	}
	if len(form.Password) == 0 {
		fields = append(fields,
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&form.Password),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&form.ConfirmPassword),
		)
	}
	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return fmt.Errorf("reset prompt cancelled: %w", err)
		}
	}

	if err := form.Validate(); err != nil {
		return rejectForm(err)
	}

	req := form.Request()
	result, err := runWithSpinner(cmd.Context(), "Resetting password...",
		func(ctx context.Context, view *binding.Binding) models.Result {
			return view.ResetPassword(ctx, req)
		})
	if err != nil {
		return err
	}

	if err := printResult(result); err != nil {
		return err
	}

	fmt.Println(infoStyle.Render("Run 'portal login' to sign in with the new password"))
	return nil
}

// sendCode validates the address and asks the backend to email a code.
func sendCode(ctx context.Context, email string, codeType models.EmailCodeType) (models.Result, error) {
	form := forms.SendCodeForm{Email: email, Type: string(codeType)}
	if err := form.Validate(); err != nil {
		return models.Result{}, rejectForm(err)
	}

	return runWithSpinner(ctx, "Sending verification code...",
		func(ctx context.Context, view *binding.Binding) models.Result {
			return view.SendEmailCode(ctx, form.Email, codeType)
		})
}

func init() {
	sendCodeCmd.Flags().String("type", string(models.EmailCodeRegister), "Code purpose: register or reset_password")

	resetPasswordCmd.Flags().StringP("email", "e", "", "Account email")
	resetPasswordCmd.Flags().String("code", "", "Email verification code")
	resetPasswordCmd.Flags().StringP("password", "p", "", "New password (prompted when omitted)")

	rootCmd.AddCommand(sendCodeCmd)
	rootCmd.AddCommand(resetPasswordCmd)
}
