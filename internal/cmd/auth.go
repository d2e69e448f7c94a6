package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/ftpfinder/internal/observability"
	"github.com/3leaps/ftpfinder/pkg/session"
)

var authPassword string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Configure and check the admin password",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the server has an admin password",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var authSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set the admin password on an unconfigured server",
	Long: `Set the admin password. This only succeeds once, on a server that has
no password yet.

Examples:
  ftpfinder auth setup --password 's3cret'
  FTPFINDER_PASSWORD='s3cret' ftpfinder auth setup`,
	Args: cobra.NoArgs,
	RunE: runAuthSetup,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check that the admin password is accepted",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authStatusCmd, authSetupCmd, authLoginCmd)
	authCmd.PersistentFlags().StringVar(&authPassword, "password", "", "Admin password (overrides auth.password)")
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadedConfig(cmd.Context())
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	status, err := client.AuthStatus(cmd.Context())
	if err != nil {
		return apiExit("Could not read auth status", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "configured=%t\n", status.Configured)
	return nil
}

func runAuthSetup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	gw := session.NewGateway(client, observability.CLILogger.Named("session"))
	if _, err := gw.Resolve(ctx); err != nil {
		return sessionExit(err)
	}
	if err := gw.Setup(ctx, adminPassword(cfg, authPassword)); err != nil {
		return sessionExit(err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Password set successfully. Log in with: ftpfinder auth login")
	return nil
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadedConfig(ctx)
	if err != nil {
		return err
	}
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	gw, err := login(ctx, client, adminPassword(cfg, authPassword))
	if err != nil {
		return err
	}
	if !gw.Authenticated() {
		return exitError(foundry.ExitInvalidArgument, "Login did not authenticate", nil)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "authenticated=true")
	return nil
}
