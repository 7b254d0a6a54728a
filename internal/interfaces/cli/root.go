// internal/interfaces/cli/root.go
//
// Operational CLI: migrations, queue administration, and manual job
// triggers. Commands build only the infrastructure they need; nothing here
// starts long-running loops.

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// rootOptions holds global flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fileready",
		Short:         "Compliance tracking platform operations CLI",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log verbosity for CLI runs")

	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newQueuesCommand(opts))
	root.AddCommand(newEnqueueCommand(opts))

	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the configured file, falling back to environment-only
// configuration when the file is absent.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if _, err := os.Stat(o.configPath); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(o.configPath)
}

// newLogger builds a console logger for interactive runs; default level is
// warn so command output stays readable.
func (o *rootOptions) newLogger() (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:  o.logLevel,
		Format: "console",
	})
}

// buildQueues connects Redis and constructs the two well-known queues.
// Caller closes the returned client.
func buildQueues(cfg *config.Config, log logging.Logger) (map[string]*queue.Queue, *redis.Client, error) {
	client, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	queues := map[string]*queue.Queue{
		"compliance": queue.NewQueue("compliance", client, cfg.Queues.Compliance, log, nil),
		"reminder":   queue.NewQueue("reminder", client, cfg.Queues.Reminder, log, nil),
	}
	return queues, client, nil
}

// printJSON renders command results.
func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
