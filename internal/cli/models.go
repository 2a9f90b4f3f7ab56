package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List changed and unchanged models",
	Long: `List the models affected by the most recent cached comparison together
with their display parents, followed by the wholly unaffected models.`,
	Run: runModels,
}

var (
	modelsRange         string
	modelsShowUnchanged bool
)

func init() {
	modelsCmd.Flags().StringVar(&modelsRange, "range", "", "Read a specific cached range key instead of the latest result")
	modelsCmd.Flags().BoolVar(&modelsShowUnchanged, "unchanged", false, "Also list unchanged model ids")
}

func runModels(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	result := latestResult(c, modelsRange)

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	fmt.Printf("Comparison %s\n\n", result.RangeKey())
	fmt.Printf("Changed models (%d):\n", len(result.ChangedModels))
	for _, modelID := range result.ChangedModels {
		yellow.Printf("  %s", modelID)
		if info, ok := result.ModelInfos[modelID]; ok {
			if info.Name != "" {
				fmt.Printf("  %s", info.Name)
			}
			if info.Source != "" {
				cyan.Printf("  [%s]", info.Source)
			}
		}
		if parent, ok := result.ModelParents[modelID]; ok {
			fmt.Printf("  (parent %s)", shortID(parent))
		}
		fmt.Println()
	}

	if modelsShowUnchanged {
		fmt.Printf("\nUnchanged models (%d):\n", len(result.UnchangedModels))
		for _, modelID := range result.UnchangedModels {
			fmt.Printf("  %s\n", modelID)
		}
	} else {
		fmt.Printf("\n%d models unchanged\n", len(result.UnchangedModels))
	}
}
