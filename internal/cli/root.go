// Package cli implements the gigshield command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/gigshield/internal/logging"
	"github.com/ppiankov/gigshield/internal/model"
)

// Version is set at build time with -ldflags "-X ...cli.Version=..."
var Version = "v0.3.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gigshield",
	Short: "GigShield - deactivation appeal backend for gig workers",
	Long: `GigShield helps gig workers contest account deactivations.

It analyzes deactivation notices, drafts appeal letters grounded in a
knowledge base of worker-protection law, tracks appeal cases and scores
each case's likelihood of success with an explainable rule-based engine.

Scores are estimates, not legal advice.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := viper.GetString("log.level")
		if verbose {
			level = "debug"
		}
		logging.SetDefaultCLILogger(level)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of GigShield.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gigshield %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.gigshield/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// envAliases lets the conventional provider variables stand in for GIGSHIELD_* ones
var envAliases = map[string][]string{
	"store.mongo_uri":      {"MONGO_URI"},
	"cache.redis_addr":     {"REDIS_URI", "REDIS_URL"},
	"auth.jwt_secret":      {"JWT_SECRET"},
	"knowledge.vector_url": {"QDRANT_URL"},
}

// initConfig reads in .env, the config file and environment variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error reading .env: %v\n", err)
	}

	if err := configure(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
	}
}

// configure registers defaults, env bindings and the config file on v
func configure(v *viper.Viper, file string) error {
	if err := setDefaults(v, model.DefaultConfig()); err != nil {
		return err
	}

	v.SetEnvPrefix("GIGSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{"GIGSHIELD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".gigshield"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// setDefaults registers every key of cfg so env overrides apply to it
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaultTree(v, "", tree)

	// Secrets are omitted from the YAML but still need a key for env lookup
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("auth.jwt_secret", "")
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(v, full, sub)
			continue
		}
		v.SetDefault(full, value)
	}
}

// loadConfig decodes the effective configuration from v
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	resolveLLMEnv(&cfg.LLM)
	return cfg, nil
}

// resolveLLMEnv fills provider credentials from the provider's own variables
func resolveLLMEnv(c *model.LLMConfig) {
	switch strings.ToLower(c.Provider) {
	case "openai":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if c.BaseURL == "" {
			c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// currentConfig is the config for the running command
func currentConfig() (*model.Config, error) {
	return loadConfig(viper.GetViper())
}
