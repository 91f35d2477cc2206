// Package main provides the entry point for the portage CLI.
package main

import (
	"fmt"
	"os"

	"github.com/portagehq/portage/internal/cli"
	apperrors "github.com/portagehq/portage/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		if perr := apperrors.AsPortageError(err); perr != nil {
			fmt.Fprintln(os.Stderr, perr.UserMessage())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
