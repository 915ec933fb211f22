package cli

import (
	"fmt"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/agent"
)

// serviceArguments are the flags the service manager passes back to
// 'portal serve' so the installed service uses the same config and backend.
func serviceArguments(cmd *cobra.Command) []string {
	arguments := []string{"serve"}

	if configFile, _ := cmd.Flags().GetString("config"); len(configFile) > 0 {
		arguments = append(arguments, "--config", configFile)
	}
	if apiURL, _ := cmd.Flags().GetString("api-url"); len(apiURL) > 0 {
		arguments = append(arguments, "--api-url", apiURL)
	}

	return arguments
}

// createService builds a control handle only; the program never starts in
// this process.
func createService(cmd *cobra.Command) (service.Service, error) {
	program := agent.NewServiceProgram(nil)

	s, err := agent.CreateService(program, serviceArguments(cmd)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Service management commands",
	Long:  `Manage the portal's local web service as a system service`,
	// Managing the service needs the config but not a session.
	PersistentPreRunE: preRunConfigE,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the web service as a system service",
	Long:  `Install the local web service so it starts automatically on boot`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}

		if err := s.Install(); err != nil {
			printInstallInstructions()
			return fmt.Errorf("failed to install service: %w", err)
		}

		fmt.Println(successStyle.Render("Portal service installed successfully"))
		fmt.Println("   Use 'portal service start' to start the service")
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the system service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}

		if err := s.Start(); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}

		fmt.Println(successStyle.Render("Portal service started successfully"))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the system service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}

		if err := s.Stop(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}

		fmt.Println(successStyle.Render("Portal service stopped successfully"))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the system service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}

		status, err := s.Status()
		if err != nil {
			return fmt.Errorf("failed to get service status: %w", err)
		}

		var statusText string
		switch status {
		case service.StatusRunning:
			statusText = activeStyle.Render("Running")
		case service.StatusStopped:
			statusText = warningStyle.Render("Stopped")
		default:
			statusText = "Unknown"
		}

		fmt.Printf("Portal service status: %s\n", statusText)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Uninstall the system service",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := createService(cmd)
		if err != nil {
			return err
		}

		// Stop first; an already stopped service is fine
		if err := s.Stop(); err != nil {
			fmt.Println("Service was not running")
		}

		if err := s.Uninstall(); err != nil {
			return fmt.Errorf("failed to uninstall service: %w", err)
		}

		fmt.Println(successStyle.Render("Portal service uninstalled successfully"))
		return nil
	},
}

func printInstallInstructions() {
	exePath, _ := os.Executable()
	fmt.Println("\nService installation failed. You may need to run with elevated privileges:")
	fmt.Println("\nLinux / macOS:")
	fmt.Printf("   sudo %s service install\n", exePath)
	fmt.Println("\nWindows:")
	fmt.Printf("   Run as Administrator: %s service install\n", exePath)
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installCmd)
	serviceCmd.AddCommand(startCmd)
	serviceCmd.AddCommand(stopCmd)
	serviceCmd.AddCommand(statusCmd)
	serviceCmd.AddCommand(removeCmd)
}
