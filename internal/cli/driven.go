package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/kilupskalvis/mvc/internal/changeset"
	"github.com/kilupskalvis/mvc/internal/core"
	"github.com/spf13/cobra"
)

var drivenCmd = &cobra.Command{
	Use:   "driven <element-id>",
	Short: "Show elements indirectly driven by an element",
	Long: `Walk the driven-relationship graph from the given element and print the
transitively driven elements level by level. Relationships are read from a
driven.json file in the changesets directory unless --edges is given.`,
	Args: cobra.ExactArgs(1),
	Run:  runDriven,
}

var drivenEdgesFile string

func init() {
	drivenCmd.Flags().StringVar(&drivenEdgesFile, "edges", "", "Path to the driven-relationship JSON file")
}

func runDriven(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	edgesPath := drivenEdgesFile
	if edgesPath == "" {
		edgesPath = filepath.Join(c.Config.ChangesetsPath(), "driven.json")
	}

	edges, err := changeset.LoadDrivenEdges(edgesPath)
	if err != nil {
		exitError("failed to load driven edges: %v", err)
	}

	graph := core.NewDrivenGraph(edges)
	levels := graph.Expand([]string{args[0]})
	if len(levels) == 0 {
		fmt.Printf("%s drives no other elements\n", args[0])
		return
	}

	cyan := color.New(color.FgCyan)
	total := 0
	for i, level := range levels {
		cyan.Printf("Level %d (%d):\n", i+1, len(level))
		for _, id := range level {
			fmt.Printf("  %s\n", id)
		}
		total += len(level)
	}
	fmt.Printf("\n%d elements driven by %s\n", total, args[0])
}
