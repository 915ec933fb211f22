package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/binding"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/models"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in account",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if !manager.IsAuthenticated() {
		fmt.Println(warningStyle.Render(messages.T(i18n.NotAuthenticated)))
		fmt.Println(infoStyle.Render("Run 'portal login' to sign in"))
		return errOperationFailed
	}

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		refreshErr, err := runWithSpinner(cmd.Context(), "Refreshing account...",
			func(ctx context.Context, view *binding.Binding) error {
				return view.RefreshUser(ctx)
			})
		if err != nil {
			return err
		}
		if refreshErr != nil {
			logrus.WithError(refreshErr).Debugln("Failed to refresh user")
			fmt.Println(warningStyle.Render("Could not refresh, showing the saved account"))
		}
	}

	printUser(manager.GetUser())
	return nil
}

func printUser(user *models.UserInfo) {
	if user == nil {
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render(user.GetName()))
	printField("Balance", fmt.Sprintf("¥%.2f", user.GetBalance()))
	printField("Commission", fmt.Sprintf("¥%.2f", user.GetCommissionBalance()))

	switch {
	case !user.HasPlan():
		printField("Plan", warningStyle.Render("No active plan"))
	case user.IsExpired():
		printField("Plan", expiredStyle.Render(fmt.Sprintf("#%d", *user.PlanID)))
	default:
		printField("Plan", activeStyle.Render(fmt.Sprintf("#%d", *user.PlanID)))
	}

	if expiry := user.GetExpiry(); expiry != nil {
		printField("Expires", expiry.Local().Format(time.DateTime))
	} else if user.HasPlan() {
		printField("Expires", "Never")
	}
}

func printField(label string, value string) {
	fmt.Println(labelStyle.Render(label) + value)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		logoutErr, err := runWithSpinner(cmd.Context(), "Signing out...",
			func(ctx context.Context, view *binding.Binding) error {
				return view.Logout(ctx)
			})
		if err != nil {
			return err
		}
		if logoutErr != nil {
			return fmt.Errorf("failed to clear saved session: %w", logoutErr)
		}

		fmt.Println(successStyle.Render(messages.T(i18n.LogoutSuccess)))
		return nil
	},
}

var checkEmailCmd = &cobra.Command{
	Use:   "check-email [email]",
	Short: "Check whether an email is already registered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var email string
		if len(args) > 0 {
			email = args[0]
		}

		if len(email) == 0 {
			err := huh.NewInput().
				Title("Email").
				Value(&email).
				Validate(requiredField(i18n.EmailRequired)).
				Run()
			if err != nil {
				return fmt.Errorf("email prompt cancelled: %w", err)
			}
		}
		email = strings.TrimSpace(email)

		type outcome struct {
			exists bool
			err    error
		}

		result, err := runWithSpinner(cmd.Context(), "Checking email...",
			func(ctx context.Context, view *binding.Binding) outcome {
				exists, err := view.CheckEmail(ctx, email)
				return outcome{exists: exists, err: err}
			})
		if err != nil {
			return err
		}
		if result.err != nil {
			return fmt.Errorf("failed to check email: %w", result.err)
		}

		if result.exists {
			fmt.Println(infoStyle.Render(email + " is registered"))
		} else {
			fmt.Println(infoStyle.Render(email + " is not registered"))
		}
		return nil
	},
}

func init() {
	whoamiCmd.Flags().Bool("refresh", false, "Fetch the latest account details first")

	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(checkEmailCmd)
}
