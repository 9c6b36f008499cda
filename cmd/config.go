package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/bimmerbailey/aoai/internal/config"
	"github.com/bimmerbailey/aoai/internal/output"
	"github.com/bimmerbailey/aoai/internal/provider"
	"github.com/bimmerbailey/aoai/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change persisted settings",
	Long: `Manage the settings file used when no environment variable is set.

Valid keys: ` + strings.Join(config.Keys, ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective and persisted settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a persisted setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolP("watch", "w", false, "reprint whenever the settings file changes")

	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configView is the JSON form of config show.
type configView struct {
	Path      string            `json:"path"`
	Provider  string            `json:"provider"`
	Effective config.Effective  `json:"effective"`
	Persisted map[string]string `json:"persisted"`
	Warning   string            `json:"warning,omitempty"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	path, err := configPath()
	if err != nil {
		return err
	}

	settings, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := printConfig(cmd.OutOrStdout(), path, settings, logger); err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := config.NewWatcher(path, func(s config.Settings, err error) {
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout())
		if err := printConfig(cmd.OutOrStdout(), path, s, logger); err != nil {
			logger.Error("failed to print config", "error", err)
		}
	}, logger)
	return w.Run(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printConfig(w io.Writer, path string, s config.Settings, logger *slog.Logger) error {
	registry := provider.NewRegistry(config.NewResolver(logger), logger)
	r := runner.New(s, registry, nil, logger)
	name := r.ProviderName(nil)

	// An unknown provider still shows the persisted record so it can be fixed.
	warning := ""
	eff, err := registry.Effective(name, s)
	switch {
	case provider.IsUnsupported(err):
		warning = err.Error()
		eff = config.Effective{Provider: name}
	case err != nil:
		return err
	default:
		eff = eff.Redacted()
	}

	persisted := s.Map()
	if v, ok := persisted[config.KeyAPIKey]; ok {
		persisted[config.KeyAPIKey] = config.Effective{APIKey: v}.Redacted().APIKey
	}

	out := output.New(w, output.ParseFormat(viper.GetString("format")))
	if out.Format() == output.FormatJSON {
		return out.WriteJSON(configView{
			Path:      path,
			Provider:  name,
			Effective: eff,
			Persisted: persisted,
			Warning:   warning,
		})
	}

	fmt.Fprintf(w, "Config file: %s\n\n", path)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tEFFECTIVE\tPERSISTED")
	for _, k := range config.Keys {
		p, ok := persisted[k]
		if !ok {
			p = "-"
		}
		e := eff.Value(k)
		if e == "" {
			e = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, e, p)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if warning != "" {
		fmt.Fprintf(w, "\nWarning: %s\n", warning)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	return updateConfig(cmd, func(s *config.Settings) error {
		return s.Set(args[0], args[1])
	})
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	return updateConfig(cmd, func(s *config.Settings) error {
		return s.Unset(args[0])
	})
}

func updateConfig(cmd *cobra.Command, change func(*config.Settings) error) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	s, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := change(&s); err != nil {
		return err
	}
	if err := config.Save(path, s); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Config updated.")
	return nil
}
