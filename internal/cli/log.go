package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List cached comparison runs",
	Long:  `Display the cached comparison results, newest first.`,
	Run:   runLog,
}

var logOneline bool

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show each comparison on a single line")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	results, err := c.Store.ListResults()
	if err != nil {
		exitError("failed to list cached results: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No cached comparisons yet")
		return
	}

	yellow := color.New(color.FgYellow)
	magenta := color.New(color.FgMagenta)

	for _, result := range results {
		if logOneline {
			yellow.Printf("%s ", result.RangeKey())
			if result.Backward {
				magenta.Print("[backward] ")
			}
			fmt.Printf("%d elements, %d models\n", len(result.Elements), len(result.ChangedModels))
			continue
		}

		yellow.Printf("comparison %s", result.RangeKey())
		if result.Backward {
			magenta.Print(" [backward]")
		}
		fmt.Println()
		fmt.Printf("Id:     %s\n", shortID(result.ID))
		fmt.Printf("Date:   %s\n", result.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
		fmt.Printf("\n    %d elements, %d changed models, %d unchanged\n\n",
			len(result.Elements), len(result.ChangedModels), len(result.UnchangedModels))
	}
}
