// Package commands defines the cobra commands of the readnext binary.
package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readnext/internal/config"
	logpkg "github.com/kailas-cloud/readnext/internal/logger"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	envFile    string
}

// NewRootCmd constructs the root command.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "readnext",
		Short: "Recommend books and articles for a free-text note",
		Long: `readnext narrows a resource corpus with cheap lexical filters, makes a
single embedding call for the note, and ranks the survivors by cosine
similarity.

Configuration is read from config/<ENV>.yaml (ENV defaults to "local")
or from --config. A .env file is loaded first when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to YAML config (default: config/<ENV>.yaml)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(flags),
		newIngestCmd(flags),
		newVersionCmd(),
	)
	return root
}

// load reads .env, the config and builds the logger.
func (f *rootFlags) load() (string, config.Config, *zap.Logger, error) {
	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", config.Config{}, nil, fmt.Errorf("load %s: %w", f.envFile, err)
	}

	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return "", config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return env, cfg, logger, nil
}
