// Package cli defines the assistant command tree.
package cli

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/greenhaven/assistant-chat/internal/config"
	"github.com/greenhaven/assistant-chat/internal/logger"
	"github.com/greenhaven/assistant-chat/internal/service/assistant"
	chatService "github.com/greenhaven/assistant-chat/internal/service/chat"
	"github.com/greenhaven/assistant-chat/internal/typing"
)

// app carries what every subcommand needs once flags and environment are resolved.
type app struct {
	version string

	baseURL  string
	org      string
	logLevel string
	addr     string

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCommand builds the "assistant" command.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Chat with the Green Haven AI assistant from a browser or a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "base-url", "", fmt.Sprintf("assistant API base URL (default %s)", config.DefaultBaseURL))
	flags.StringVar(&a.org, "org", "", "organization id sent with chat requests")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newServeCommand(a),
		newChatCommand(a),
		newRegisterCommand(a),
		newVersionCommand(a),
	)
	return root
}

// load reads .env and the environment, then applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	// A missing .env is normal outside development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.baseURL != "" {
		cfg.Assistant.BaseURL = strings.TrimRight(a.baseURL, "/")
	}
	if a.org != "" {
		cfg.Assistant.OrganizationID = a.org
	}
	if a.addr != "" {
		cfg.Server.Addr = a.addr
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.Log.Level
	if interactive(cmd) && !cmd.Flags().Changed("log-level") && level == "info" {
		// Keep routine info lines off the conversation.
		level = "warn"
	}

	a.cfg = cfg
	a.log = logger.Setup(level, cfg.Log.Format)
	if envErr != nil {
		a.log.Debug().Err(envErr).Msg("no .env file loaded, using process environment")
	}
	return nil
}

func interactive(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "chat", "register":
		return true
	}
	return false
}

// newChatService wires the REST client into a session service.
func (a *app) newChatService() *chatService.Service {
	client := assistant.NewClient(assistant.Options{
		BaseURL: a.cfg.Assistant.BaseURL,
		Timeout: a.cfg.Assistant.Timeout,
		Logger:  a.log,
	})
	return chatService.NewService(client, chatService.Options{
		OrganizationID: a.cfg.Assistant.OrganizationID,
		Channel:        a.cfg.Assistant.Channel,
		Logger:         a.log,
		IdleTimeout:    a.cfg.UI.SessionIdle,
	})
}

func (a *app) typewriter() typing.Typewriter {
	return typing.New(a.cfg.UI.TypingDelay)
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "assistant %s\n", a.version)
			return err
		},
	}
}
