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

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Create a new account. When email verification is enabled a code is sent
to the address first; pass --code to skip that step.`,
	RunE: runRegister,
}

func runRegister(cmd *cobra.Command, _ []string) error {
	features := cfg.Features
	suffixes := cfg.GetEmailSuffixes()

	if !features.Registration {
		return rejectForm(forms.ErrRegistrationDisabled)
	}

	form := forms.RegisterForm{}
	form.Email, _ = cmd.Flags().GetString("email")
	form.Code, _ = cmd.Flags().GetString("code")
	form.Password, _ = cmd.Flags().GetString("password")
	form.InviteCode, _ = cmd.Flags().GetString("invite-code")
	form.AgreeToTerms, _ = cmd.Flags().GetBool("agree-terms")
	form.ConfirmPassword = form.Password

	if len(form.Email) == 0 {
		fmt.Println(titleStyle.Render(cfg.Site.Name))

		email, err := promptEmail(suffixes)
		if err != nil {
			return err
		}
		form.Email = email
	}

	if features.EmailVerification && len(form.Code) == 0 {
		result, err := sendCode(cmd.Context(), form.Email, models.EmailCodeRegister)
		if err != nil {
			return err
		}
		if err := printResult(result); err != nil {
			return err
		}

		err = huh.NewInput().
			Title("Verification code").
			Description(fmt.Sprintf("Sent to %s", form.Email)).
			Value(&form.Code).
			Validate(requiredField(i18n.CodeRequired)).
			Run()
		if err != nil {
			return fmt.Errorf("code prompt cancelled: %w", err)
		}
	}

	var fields []huh.Field
	if len(form.Password) == 0 {
		fields = append(fields,
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&form.Password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&form.ConfirmPassword),
		)
	}
	if features.InviteCode && !cmd.Flags().Changed("invite-code") {
		fields = append(fields,
			huh.NewInput().
				Title("Invite code").
				Description("Optional").
				Value(&form.InviteCode),
		)
	}
	if !form.AgreeToTerms {
		fields = append(fields,
			huh.NewConfirm().
				Title("Do you accept the terms of service and privacy policy?").
				Value(&form.AgreeToTerms),
		)
	}

	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return fmt.Errorf("registration prompt cancelled: %w", err)
		}
	}

	if err := form.Validate(features, suffixes); err != nil {
		return rejectForm(err)
	}

	req := form.Request(features)
	result, err := runWithSpinner(cmd.Context(), "Creating account...",
		func(ctx context.Context, view *binding.Binding) models.Result {
			return view.Register(ctx, req)
		})
	if err != nil {
		return err
	}

	if err := printResult(result); err != nil {
		return err
	}

	if result.Authenticated {
		printUser(manager.GetUser())
	} else {
		fmt.Println(infoStyle.Render("Run 'portal login' to sign in"))
	}
	return nil
}

// promptEmail asks for a mailbox name and one of the allowed domains, or
// a full address when every domain is allowed.
func promptEmail(suffixes []string) (string, error) {
	if len(suffixes) == 0 {
		var email string
		err := huh.NewInput().
			Title("Email").
			Value(&email).
			Validate(requiredField(i18n.EmailRequired)).
			Run()
		if err != nil {
			return "", fmt.Errorf("email prompt cancelled: %w", err)
		}
		return email, nil
	}

	var prefix, suffix string
	options := make([]huh.Option[string], 0, len(suffixes))
	for _, s := range suffixes {
		options = append(options, huh.NewOption("@"+s, s))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Description("The part before @").
				Value(&prefix).
				Validate(requiredField(i18n.EmailRequired)),
			huh.NewSelect[string]().
				Title("Domain").
				Options(options...).
				Value(&suffix),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("email prompt cancelled: %w", err)
	}

	return forms.ComposeEmail(prefix, suffix), nil
}

func init() {
	registerCmd.Flags().StringP("email", "e", "", "Account email")
	registerCmd.Flags().String("code", "", "Email verification code")
	registerCmd.Flags().StringP("password", "p", "", "Account password (prompted when omitted)")
	registerCmd.Flags().String("invite-code", "", "Invite code")
	registerCmd.Flags().Bool("agree-terms", false, "Accept the terms of service and privacy policy")

	rootCmd.AddCommand(registerCmd)
}
