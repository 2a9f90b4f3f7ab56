package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mvc/internal/changeset"
	"github.com/kilupskalvis/mvc/internal/core"
	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare [start-changeset] [end-changeset]",
	Short: "Compare the snapshots across a changeset range",
	Long: `Accumulate the changeset range into one net change record per element
and resolve the affected models. With no arguments the full changeset
sequence is compared. The result is cached; later show / models / driven
invocations read the cache.`,
	Args: cobra.MaximumNArgs(2),
	Run:  runCompare,
}

var (
	compareBackward     bool
	compareStrict       bool
	compareModelClasses []string
	compareSpatialOnly  bool
	compareNoCache      bool
)

func init() {
	compareCmd.Flags().BoolVar(&compareBackward, "backward", false, "Accumulate from newer to older")
	compareCmd.Flags().BoolVar(&compareStrict, "strict", false, "Abort on unknown opcode pairings instead of dropping them")
	compareCmd.Flags().StringArrayVar(&compareModelClasses, "model-class", nil, "Restrict results to models of this class (repeatable)")
	compareCmd.Flags().BoolVar(&compareSpatialOnly, "spatial-only", false, "Restrict results to 3D geometric element classes")
	compareCmd.Flags().BoolVar(&compareNoCache, "no-cache", false, "Do not cache the comparison result")
}

func runCompare(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initFullContext()
	defer c.Close()

	var start, end string
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		end = args[1]
	}

	changesets, err := changeset.LoadRange(c.Config.ChangesetsPath(), start, end)
	if err != nil {
		exitError("failed to load changesets: %v", err)
	}
	if len(changesets) == 0 {
		exitError("no changesets found in %s", c.Config.ChangesetsPath())
	}
	if start == "" {
		start = changesets[0].ID
	}
	if end == "" {
		end = changesets[len(changesets)-1].ID
	}

	session := core.NewSession(c.Current, c.Target, core.Options{
		Backward:            compareBackward,
		Strict:              compareStrict,
		AllowedModelClasses: compareModelClasses,
		SpatialOnly:         compareSpatialOnly,
		EntryChunkSize:      c.Config.EntryChunkSize,
		Progress:            printProgress,
	})
	defer session.Cleanup()

	fmt.Printf("Comparing %s..%s (%d changesets)\n", start, end, len(changesets))
	if err := session.SetChangesets(bgCtx, changesets); err != nil {
		exitError("comparison failed: %v", err)
	}
	finishProgress()

	result, err := session.Result(start, end)
	if err != nil {
		exitError("%v", err)
	}

	printSummary(result)

	if !compareNoCache {
		if err := c.Store.SaveResult(result); err != nil {
			exitError("failed to cache result: %v", err)
		}
		fmt.Printf("\nResult cached as %s\n", result.RangeKey())
	}
}

// printProgress renders fire-and-forget progress events on stderr
func printProgress(phase string, percent int) {
	fmt.Fprintf(os.Stderr, "\r%-32s %3d%%", phase, percent)
}

func finishProgress() {
	fmt.Fprintf(os.Stderr, "\r%-37s\r", "")
}

// printSummary prints the colored per-opcode and per-model totals
func printSummary(result *models.ComparisonResult) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	var inserted, updated, deleted int
	for _, rec := range result.Elements {
		switch rec.Opcode {
		case models.OpcodeInsert:
			inserted++
		case models.OpcodeUpdate:
			updated++
		case models.OpcodeDelete:
			deleted++
		}
	}

	fmt.Printf("\nElements (%d):\n", len(result.Elements))
	green.Printf("  + %d inserted\n", inserted)
	yellow.Printf("  ~ %d updated\n", updated)
	red.Printf("  - %d deleted\n", deleted)

	fmt.Printf("\nModels: %d changed, %d unchanged\n",
		len(result.ChangedModels), len(result.UnchangedModels))
	for _, modelID := range result.ChangedModels {
		name := modelID
		if info, ok := result.ModelInfos[modelID]; ok && info.Name != "" {
			name = info.Name
		}
		fmt.Printf("  %s", name)
		if parent, ok := result.ModelParents[modelID]; ok {
			fmt.Printf("  (parent %s)", shortID(parent))
		}
		fmt.Println()
	}
}
