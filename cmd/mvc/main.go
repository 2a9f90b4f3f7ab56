// Command mvc is the Model Version Compare CLI.
package main

import (
	"os"

	"github.com/kilupskalvis/mvc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
