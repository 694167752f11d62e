package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"face-auth-backend/internal/bootstrap"
	"face-auth-backend/internal/shared/config"
)

const version = "0.1.0"

// cli carries the application graph shared by subcommands.
type cli struct {
	app *bootstrap.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "faceauthctl",
		Short:         "Inspect and exercise face enrollments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app, err := bootstrap.Build(cmd.Context(), cfg, bootstrap.Options{SkipRouter: true})
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			c.app = app
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				_ = c.app.Close()
			}
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		c.registeredCmd(),
		c.enrollCmd(),
		c.verifyCmd(),
		c.listCmd(),
		c.attemptsCmd(),
	)
	return root
}
