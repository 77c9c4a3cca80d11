package cmd

import (
	"fmt"
	"os"

	"github.com/go-drift/motion/pkg/config"
)

func init() {
	RegisterCommand(&Command{
		Name:  "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration motion would run with, as YAML.

Settings come from motion.yaml in the given directory (default: the current
directory), overridden by MOTION_* environment variables. The configuration
is validated, including the engine version it asks for.`,
		Usage: "motion config [DIR]",
		Run:   runConfig,
	})
}

func runConfig(args []string) error {
	dir, err := configDir(args)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

func configDir(args []string) (string, error) {
	switch len(args) {
	case 0:
		return os.Getwd()
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("too many arguments\n\nUsage: motion config [DIR]")
	}
}
