// Package cli provides the Cobra-based CLI for shopassist.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"shopassist/apiclient"
	"shopassist/chat"
	"shopassist/config"
	"shopassist/domain"
	"shopassist/listing"
	"shopassist/store"
)

var (
	rootCmd = &cobra.Command{
		Use:           "shopassist",
		Short:         "Storefront client: browse products and chat with the shopping assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// IMPORTANT: allow tests to inject the client
			if api != nil {
				return nil
			}

			c, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			cfg = c

			logLevel.Set(config.ParseLevel(cfg.LogLevel))
			slog.SetDefault(slog.New(
				slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}),
			))

			sessionStore, err = store.NewStore(cmd.Context(), cfg.Store, cfg.StoreLocation())
			if err != nil {
				return err
			}
			api = apiclient.New(cfg.APIURL, cfg.Timeout,
				apiclient.WithTokenStore(sessionStore),
				apiclient.WithLogger(slog.Default()),
			)
			return nil
		},
	}

	cfg          *config.Config
	api          *apiclient.Client
	sessionStore domain.SessionStore
	logLevel     = new(slog.LevelVar)

	// built on first use and kept for the life of the process, so the shell
	// keeps one conversation and one listing
	chatAssistant *chat.Assistant
	listingCtl    *listing.Controller
)

func init() {
	d := config.DefaultConfig()
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (yaml or json)")
	pf.String("api-url", d.APIURL, "storefront API base URL")
	pf.Duration("timeout", d.Timeout, "per-request timeout")
	pf.Int("per-page", d.PerPage, "products per page")
	pf.Int("window", d.Window, "page buttons shown around the current page")
	pf.String("store", d.Store, "session store backend: memory|file|redis")
	pf.String("store-file", d.StoreFile, "file store path")
	pf.String("redis-url", d.RedisURL, "redis store URL")
	pf.String("log-level", d.LogLevel, "log level")

	for _, name := range []string{
		"config", "api-url", "timeout", "per-page", "window",
		"store", "store-file", "redis-url", "log-level",
	} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(shellCmd, configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVar(&configFile, "file", "shopassist.yaml", "output file (.yaml, .yml or .json)")
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell mode",
	Long: "Interactive shell mode. Besides every regular command it accepts\n" +
		"next, prev, page <n>, filter [flags], reset, retry, show and options,\n" +
		"which act on one listing kept for the whole session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.ConfigFileUsed() != "" {
			config.Watch(viper.GetViper(), slog.Default(), func(c *config.Config) {
				logLevel.Set(config.ParseLevel(c.LogLevel))
				slog.Info("log level updated", "level", c.LogLevel)
			})
		}

		ctl := controller()
		ctl.Start()
		nav := navCommands()
		rootCmd.AddCommand(nav...)
		defer rootCmd.RemoveCommand(nav...)

		out := cmd.OutOrStdout()
		r := bufio.NewReader(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "shopassist> ")
			line, readErr := r.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "exit" || line == "quit" {
				return nil
			}
			if line != "" {
				rootCmd.SetArgs(strings.Fields(line))
				if err := rootCmd.Execute(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
				rootCmd.SetArgs(nil)
				resetFlags(rootCmd)
			}
			if readErr != nil {
				return nil
			}
		}
	},
}

// resetFlags clears flag values left over from the previous shell line.
func resetFlags(cmd *cobra.Command) {
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var configFile string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.SaveToFile(configFile); err != nil {
			return err
		}
		slog.Info("configuration written", "file", configFile)
		fmt.Println(configFile)
		return nil
	},
}

// assistant returns the process-wide chat assistant.
func assistant() *chat.Assistant {
	if chatAssistant == nil {
		chatAssistant = chat.NewAssistant(api, sessionStore,
			chat.WithLogger(slog.Default()),
			chat.WithTimeout(cfg.Timeout),
		)
	}
	return chatAssistant
}

// controller returns the process-wide listing controller.
func controller() *listing.Controller {
	if listingCtl == nil {
		listingCtl = listing.NewController(api,
			listing.WithLogger(slog.Default()),
			listing.WithTimeout(cfg.Timeout),
			listing.WithPerPage(cfg.PerPage),
		)
		listingCtl.Subscribe(func(st listing.State) {
			slog.Debug("listing state changed",
				"status", st.Status.Kind.String(),
				"page", st.Criteria.Page,
				"query", st.Criteria.Query,
			)
		})
	}
	return listingCtl
}

func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if listingCtl != nil {
		listingCtl.Close()
		listingCtl = nil
	}
	if c, ok := sessionStore.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			slog.Warn("failed to close session store", "error", cerr)
		}
	}
	return err
}
