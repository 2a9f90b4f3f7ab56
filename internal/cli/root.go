// Package cli implements the command-line interface for MVC.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kilupskalvis/mvc/internal/config"
	"github.com/kilupskalvis/mvc/internal/query"
	"github.com/kilupskalvis/mvc/internal/store"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Store   *store.Store
	Current *query.DB
	Target  *query.DB
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	if c.Current != nil {
		c.Current.Close()
	}
	if c.Target != nil {
		c.Target.Close()
	}
}

// initContext initializes config and the result cache (no snapshots)
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st}
}

// initFullContext initializes config, the result cache, and both snapshots
func initFullContext() *cmdContext {
	ctx := initContext()

	current, err := query.Open(ctx.Config.CurrentSnapshotPath())
	if err != nil {
		ctx.Close()
		exitError("failed to open current snapshot: %v", err)
	}
	ctx.Current = current

	target, err := query.Open(ctx.Config.TargetSnapshotPath())
	if err != nil {
		ctx.Close()
		exitError("failed to open target snapshot: %v", err)
	}
	ctx.Target = target

	return ctx
}

var rootCmd = &cobra.Command{
	Use:   "mvc",
	Short: "Model Version Compare",
	Long: `MVC (Model Version Compare) is a git-like CLI tool for comparing two
snapshots of a versioned engineering dataset. It accumulates the raw
per-changeset deltas between the snapshots into one net change record per
element and resolves the affected model hierarchy.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var verbose bool

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(drivenCmd)
	rootCmd.AddCommand(logCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
