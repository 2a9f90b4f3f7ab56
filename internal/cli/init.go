package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/mvc/internal/config"
	"github.com/kilupskalvis/mvc/internal/query"
	"github.com/kilupskalvis/mvc/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new MVC workspace",
	Long: `Initialize a new MVC workspace in the current directory.
This creates a .mvc directory holding the configuration and the comparison
result cache.`,
	Run: runInit,
}

var (
	initCurrent    string
	initTarget     string
	initChangesets string
)

func init() {
	initCmd.Flags().StringVar(&initCurrent, "current", "", "Path to the current snapshot database")
	initCmd.Flags().StringVar(&initTarget, "target", "", "Path to the target snapshot database")
	initCmd.Flags().StringVar(&initChangesets, "changesets", "", "Directory holding changeset JSON files (default .mvc/changesets)")
	initCmd.MarkFlagRequired("current")
	initCmd.MarkFlagRequired("target")
}

func runInit(cmd *cobra.Command, args []string) {
	// Check if already initialized
	if _, err := config.FindMVCRoot(); err == nil {
		exitError("mvc workspace already exists")
	}

	for _, path := range []string{initCurrent, initTarget} {
		if _, err := os.Stat(path); err != nil {
			exitError("snapshot not found: %s", path)
		}
	}

	fmt.Printf("Initializing MVC workspace...\n")
	fmt.Printf("Current snapshot: %s\n", initCurrent)
	fmt.Printf("Target snapshot:  %s\n", initTarget)

	cfg, err := config.Initialize(initCurrent, initTarget, initChangesets)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	// Verify the snapshots open before committing to the workspace
	for _, path := range []string{cfg.CurrentSnapshotPath(), cfg.TargetSnapshotPath()} {
		db, err := query.Open(path)
		if err != nil {
			os.RemoveAll(cfg.MVCPath())
			exitError("failed to open snapshot %s: %v", path, err)
		}
		db.Close()
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("\nInitialized empty MVC workspace in .mvc/\n")
	fmt.Printf("Place changeset JSON files in %s and run 'mvc compare'.\n", cfg.ChangesetsPath())
}
