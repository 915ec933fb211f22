package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/agent"
	"github.com/bluebird-io/portal/internal/daemon"
	"github.com/bluebird-io/portal/internal/site"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portal to a local browser",
	Long: `Start the local web service. The browser front end reads site content,
follows the session over /api/session/events and submits the auth forms to
/api/auth/*. Runs until interrupted, or under the service manager when
installed with 'portal service install'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if host, _ := cmd.Flags().GetString("host"); len(host) > 0 {
			cfg.Server.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		program := agent.NewServiceProgram(func() (*daemon.Server, error) {
			return daemon.NewServer(cfg, manager, site.New(cfg)), nil
		})

		svc, err := agent.CreateService(program, serviceArguments(cmd)...)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"address": cfg.GetServerAddress(),
			"api":     client.GetBaseURL(),
		}).Infoln("Serving portal")

		// Blocks until interrupted or stopped by the service manager
		return svc.Run()
	},
}

func init() {
	serveCmd.Flags().String("host", "", "Address to listen on (default from config)")
	serveCmd.Flags().Int("port", 0, "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
