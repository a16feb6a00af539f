package cli

import (
	"github.com/spf13/cobra"

	"github.com/greenhaven/assistant-chat/internal/terminal"
)

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Log in and chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := terminal.NewReadline()
			if err != nil {
				return err
			}
			defer in.Close()

			ui := terminal.New(a.newChatService(), in, cmd.OutOrStdout(), terminal.Options{
				Title:      a.cfg.UI.Title,
				Typewriter: a.typewriter(),
				Logger:     a.log,
			})
			return ui.Run(cmd.Context())
		},
	}
}

func newRegisterCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account on the assistant service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := terminal.NewReadline()
			if err != nil {
				return err
			}
			defer in.Close()

			ui := terminal.New(a.newChatService(), in, cmd.OutOrStdout(), terminal.Options{Logger: a.log})
			return ui.Register(cmd.Context())
		},
	}
}
