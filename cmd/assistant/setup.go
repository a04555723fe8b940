package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/task-assistant/internal/config"
	"github.com/nhle/task-assistant/internal/credential"
	"github.com/nhle/task-assistant/internal/ui/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure timezone and channels interactively",
	Long: `Walk through the timezone, digest time, WhatsApp and email settings.
Tokens and passwords are stored in the system keyring and referenced from
the config file as keyring:<name>.`,
	RunE: runSetup,
}

var setupForget bool

func init() {
	setupCmd.Flags().BoolVar(&setupForget, "forget", false, "remove stored secrets instead of configuring")
}

func runSetup(cmd *cobra.Command, args []string) error {
	if setupForget {
		if err := setup.Forget(cfg, credential.Delete); err != nil {
			return err
		}
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Secretos eliminados")
		return nil
	}

	values := setup.FromConfig(cfg)
	if err := setup.Form(&values).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if err := setup.Apply(cfg, values, credential.Set); err != nil {
		return err
	}
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuración guardada en %s\n", configPath)
	return nil
}
