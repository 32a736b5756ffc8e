// Command typo3cr imports, queries and maps content repository nodes.
package main

import (
	"fmt"
	"os"

	"github.com/afoeder/typo3cr/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
