package cmd

import (
	"fmt"

	"github.com/go-drift/motion/pkg/engine"
)

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Show the CLI and engine versions.",
		Usage: "motion version",
		Run: func([]string) error {
			fmt.Fprintf(stdout, "motion CLI version %s (built %s), engine %s\n", Version, BuildTime, engine.Version)
			return nil
		},
	})
}
