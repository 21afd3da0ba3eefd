// Command riegeli is a small command-line tool for writing, reading, and
// inspecting record files.
package main

import (
	"fmt"
	"os"

	"github.com/riegeli-go/riegeli/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
