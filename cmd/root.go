package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bimmerbailey/aoai/internal/config"
	"github.com/bimmerbailey/aoai/internal/output"
	"github.com/bimmerbailey/aoai/internal/provider"
	"github.com/bimmerbailey/aoai/internal/runner"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "aoai [flags] <prompt>",
	Short: "Stream a chat completion from Azure OpenAI",
	Long: `aoai sends a single prompt to a hosted chat model and streams the answer
to the terminal as it is generated.

Settings are resolved per key from the environment first, then the config
file, so a value exported in the shell always wins:

  AZURE_OPENAI_ENDPOINT     endpoint
  AZURE_OPENAI_API_KEY      api_key
  AZURE_OPENAI_DEPLOYMENT   deployment
  AOAI_PROVIDER             provider (default azure)

Examples:
  aoai "explain the difference between TCP and UDP"
  aoai --max-tokens 512 --temperature 0.2 "write a haiku about logs"
  aoai config set endpoint https://myres.openai.azure.com
  aoai --provider ollama "hello"`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPrompt,
}

// Execute is called by main.main(). It runs the root command and reports
// any failure on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		_ = output.WriteError(os.Stderr, err.Error(), output.ParseColorMode(viper.GetString("color")))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/azure-openai-cli/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to .env file (ignored if missing)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json)")
	rootCmd.PersistentFlags().String("color", "auto", "color error output (auto, always, never)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.Flags().Int("max-tokens", 0, "maximum number of tokens to generate (default 256)")
	rootCmd.Flags().Float64("temperature", 0, "sampling temperature, typically 0.0-2.0 (default 0.7)")
	rootCmd.Flags().StringP("provider", "p", "", "provider to use (azure, ollama)")
	rootCmd.Flags().Bool("no-stream", false, "wait for the full response instead of streaming")
}

func initConfig() {
	if err := loadDotEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading env file:", err)
	}

	viper.SetEnvPrefix("AOAI")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("format", "text")
	viper.SetDefault("color", "auto")
	viper.SetDefault("verbose", false)
	viper.SetDefault("debug", false)
}

// loadDotEnv loads environment variables from path. A missing file is
// ignored so .env files stay optional. Variables already set win.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func newLogger() *slog.Logger {
	level := slog.LevelError
	if viper.GetBool("verbose") {
		level = slog.LevelInfo
	}
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// loadSettings reads the persisted settings. An unreadable file is reported
// and treated as empty.
func loadSettings(logger *slog.Logger) config.Settings {
	path, err := configPath()
	if err != nil {
		logger.Warn("config file unavailable", "error", err)
		return config.Settings{}
	}
	s, err := config.Load(path)
	if err != nil {
		logger.Warn("ignoring unreadable config file", "path", path, "error", err)
		return config.Settings{}
	}
	if viper.GetBool("verbose") {
		logger.Info("using config file", "path", path)
	}
	return s
}

func runPrompt(cmd *cobra.Command, args []string) error {
	prompt := ""
	if len(args) > 0 {
		prompt = args[0]
	}

	format := output.ParseFormat(viper.GetString("format"))
	logger := newLogger()
	settings := loadSettings(logger)

	req := runner.Request{Prompt: prompt}
	if cmd.Flags().Changed("provider") {
		name, _ := cmd.Flags().GetString("provider")
		req.ProviderName = &name
	}
	if cmd.Flags().Changed("max-tokens") {
		n, _ := cmd.Flags().GetInt("max-tokens")
		req.MaxTokens = &n
	}
	if cmd.Flags().Changed("temperature") {
		temp, _ := cmd.Flags().GetFloat64("temperature")
		req.Temperature = &temp
	}
	req.NoStream, _ = cmd.Flags().GetBool("no-stream")

	// JSON output ignores the incremental stream and prints the final result.
	var sink io.Writer = io.Discard
	var stdout *output.Sink
	if format == output.FormatText {
		stdout = output.NewSink(cmd.OutOrStdout())
		sink = stdout
	}

	registry := provider.NewRegistry(config.NewResolver(logger), logger)
	out := runner.New(settings, registry, sink, logger).Run(commandContext(cmd), req)

	if stdout != nil {
		_ = stdout.Flush()
	}

	writer := output.New(cmd.OutOrStdout(), format)
	if err := writer.WriteResult(output.Result{
		Provider: out.Provider,
		Prompt:   prompt,
		Answer:   out.Text,
		Error:    out.Message(),
	}); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	if !out.OK() {
		return out.Err
	}
	return nil
}
