package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/common"
	"github.com/bluebird-io/portal/internal/config"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/sessions"
	"github.com/bluebird-io/portal/internal/storage"
	"github.com/bluebird-io/portal/internal/v2board"
)

// Shared state built once per invocation by the root hooks
var (
	cfg      *config.Config
	store    storage.Store
	client   *v2board.Client
	manager  *sessions.Manager
	messages *i18n.Translator
)

// loadConfig loads the configuration based on the --config flag or default locations
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	return config.Load(configFile)
}

func preRunConfigE(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		cfg.SetVerbose()
	}

	if apiURL, err := cmd.Flags().GetString("api-url"); err == nil && len(apiURL) > 0 {
		cfg.API.BaseURL = apiURL
	}

	messages = i18n.New(cfg.Site.Locale)

	return nil
}

// preRunSessionE runs after preRunConfigE for every command that talks to
// the backend. The session store is namespaced by API host so switching
// --api-url never leaks a token to another backend.
func preRunSessionE(cmd *cobra.Command, args []string) error {
	if err := preRunConfigE(cmd, args); err != nil {
		return err
	}

	build, _ := common.GetModuleBuildInfo()

	var err error
	client, err = v2board.NewClient(
		cfg.API.BaseURL,
		v2board.WithTimeout(cfg.API.Timeout),
		v2board.WithUserAgent("portal/"+build.Version),
	)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}

	ephemeral, _ := cmd.Flags().GetBool("ephemeral")
	if ephemeral {
		store = storage.NewMemoryStore()
	} else {
		store, err = storage.Open(
			storage.Driver(cfg.Storage.Driver),
			cfg.Storage.Path,
			client.GetHostname(),
		)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"api":       client.GetBaseURL(),
		"driver":    cfg.Storage.Driver,
		"ephemeral": ephemeral,
	}).Debugln("Session store ready")

	manager = sessions.NewManager(
		cmd.Context(),
		client,
		store,
		sessions.WithTranslator(messages),
	)

	return nil
}

func postRunSessionE(_ *cobra.Command, _ []string) error {
	if store == nil {
		return nil
	}

	err := store.Close()
	store = nil
	if err != nil {
		return fmt.Errorf("failed to close session store: %w", err)
	}
	return nil
}

// errOperationFailed is returned after the failure message has already been
// printed, so Execute only needs to set the exit code.
var errOperationFailed = errors.New("operation failed")

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Bluebird customer portal",
	Long: `Sign in to your Bluebird account, manage your subscription session and
browse plans from the terminal, or serve the portal to a local browser.

Sessions are kept per API host under ~/.config/portal unless --ephemeral
is given.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  preRunSessionE,
	PersistentPostRunE: postRunSessionE,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWhoami(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./config.yaml or ~/.config/portal/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Override the backend API URL (e.g., https://api.example.com)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep the session in memory only")
}

func GetCommandOptions() *cobra.Command {
	return rootCmd
}

// Execute runs the root command and prints any error that was not already
// reported. It returns the process exit code.
func Execute(ctx context.Context) int {
	ctx, cleanup := common.WithInterrupt(ctx)
	defer cleanup()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errOperationFailed) {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
		}
		return 1
	}
	return 0
}
