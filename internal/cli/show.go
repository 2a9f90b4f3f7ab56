package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mvc/internal/core"
	"github.com/kilupskalvis/mvc/internal/models"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <element-id>",
	Short: "Show one element's accumulated change",
	Long: `Show the net change record of one element from the most recent cached
comparison, including per-property checksums.`,
	Args: cobra.ExactArgs(1),
	Run:  runShow,
}

var showRange string

func init() {
	showCmd.Flags().StringVar(&showRange, "range", "", "Read a specific cached range key instead of the latest result")
}

// latestResult returns the cached result selected by --range, or the most
// recent one.
func latestResult(c *cmdContext, rangeKey string) *models.ComparisonResult {
	if rangeKey != "" {
		result, err := c.Store.GetResult(rangeKey)
		if err != nil {
			exitError("failed to read cache: %v", err)
		}
		if result == nil {
			exitError("no cached result for %s", rangeKey)
		}
		return result
	}

	results, err := c.Store.ListResults()
	if err != nil {
		exitError("failed to read cache: %v", err)
	}
	if len(results) == 0 {
		exitError("no cached comparisons; run 'mvc compare' first")
	}
	return results[0]
}

func runShow(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initFullContext()
	defer c.Close()

	result := latestResult(c, showRange)
	rec, ok := result.Elements[args[0]]
	if !ok {
		exitError("element %s is not part of comparison %s", args[0], result.RangeKey())
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	switch rec.Opcode {
	case models.OpcodeInsert:
		green.Printf("+ INSERT %s\n", rec.ID)
	case models.OpcodeUpdate:
		yellow.Printf("~ UPDATE %s\n", rec.ID)
	case models.OpcodeDelete:
		red.Printf("- DELETE %s\n", rec.ID)
	}

	fmt.Printf("Range:  %s\n", result.RangeKey())
	fmt.Printf("Class:  %s\n", rec.ClassID)
	fmt.Printf("Type:   %s\n", rec.Type)
	if rec.ModelID != "" {
		fmt.Printf("Model:  %s", rec.ModelID)
		if info, ok := result.ModelInfos[rec.ModelID]; ok && info.Name != "" {
			fmt.Printf(" (%s)", info.Name)
		}
		fmt.Println()
	}
	if rec.ParentID != "" {
		fmt.Printf("Parent: %s\n", rec.ParentID)
	}

	if len(rec.Properties) == 0 {
		return
	}

	labels := core.NewLabelCache(c.Current)
	names := make([]string, 0, len(rec.Properties))
	for name := range rec.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	labels.Prime(bgCtx, names)

	fmt.Printf("\nProperties (%d):\n", len(names))
	for _, name := range names {
		cs := rec.Properties[name]
		fmt.Printf("  %s: %s -> %s\n", labels.Get(bgCtx, name), checksumString(cs.Old), checksumString(cs.New))
	}
}

func checksumString(sum *uint64) string {
	if sum == nil {
		return "?"
	}
	return fmt.Sprintf("%#x", *sum)
}
