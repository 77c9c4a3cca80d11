package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/go-drift/motion/cmd/motion/internal/scene"
	"github.com/go-drift/motion/pkg/config"
	"github.com/go-drift/motion/pkg/errors"
	"github.com/go-drift/motion/pkg/telemetry"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Play the demo scene on a simulated view",
		Long: `Play the demo scene on a simulated view host and print the final view
properties.

The scene fades in a box, grows it and slides it right with a timing
animation, while a scroll event delivered mid-animation shifts it up. A
mapper derives the box transform from both cells and writes it straight to
the view.

Flags:
  --dir DIR          Directory holding motion.yaml (default: current directory)
  --fps N            Display link rate, overrides frames.fps
  --duration D       Animation length, e.g. 300ms (default: 500ms)
  --scroll Y         Scroll offset of the simulated scroll event (default: 40)
  --debug-port N     Serve the debug endpoints while running
  --verbose          Log errors with stack traces (default when stderr is a terminal)`,
		Usage: "motion run [--dir DIR] [--fps N] [--duration D] [--scroll Y] [--debug-port N] [--verbose]",
		Run:   runRun,
	})
}

type runOptions struct {
	dir       string
	fps       int
	duration  time.Duration
	scroll    float64
	debugPort int
	verbose   bool
}

func parseRunArgs(args []string) (runOptions, error) {
	opts := runOptions{duration: 500 * time.Millisecond, scroll: 40}
	value := func(i int, flag string) (string, error) {
		if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i+1], nil
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var err error
		var v string
		switch arg {
		case "--verbose":
			opts.verbose = true
			continue
		case "--dir", "--fps", "--duration", "--scroll", "--debug-port":
			v, err = value(i, arg)
			i++
		default:
			return opts, fmt.Errorf("unknown flag %q", arg)
		}
		if err != nil {
			return opts, err
		}
		switch arg {
		case "--dir":
			opts.dir = v
		case "--fps":
			opts.fps, err = strconv.Atoi(v)
		case "--duration":
			opts.duration, err = time.ParseDuration(v)
		case "--scroll":
			opts.scroll, err = strconv.ParseFloat(v, 64)
		case "--debug-port":
			opts.debugPort, err = strconv.Atoi(v)
		}
		if err != nil {
			return opts, fmt.Errorf("invalid %s %q: %w", arg, v, err)
		}
	}
	return opts, nil
}

// terminalStderr reports whether stderr is a terminal.
func terminalStderr() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runRun(args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	if opts.dir == "" {
		if opts.dir, err = os.Getwd(); err != nil {
			return err
		}
	}

	cfg, err := config.Resolve(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.fps > 0 {
		cfg.Frames.FPS = opts.fps
	}
	if opts.debugPort > 0 {
		cfg.Diagnostics.DebugPort = opts.debugPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	prev := errors.SetHandler(&errors.LogHandler{
		Verbose: opts.verbose || terminalStderr(),
		Out:     stderr,
	})
	defer errors.SetHandler(prev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.TelemetryOptions())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdown(context.Background())

	res, err := scene.Play(ctx, scene.Options{
		Engine:   cfg.EngineOptions(),
		Duration: opts.duration,
		ScrollY:  opts.scroll,
	})
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res *scene.Result) {
	fmt.Fprintf(stdout, "animation %s after %d frames, %d events\n", res.Status, res.Frames, res.EventPasses)
	fmt.Fprintf(stdout, "view %d:\n", scene.BoxTag)
	names := make([]string, 0, len(res.Props))
	for name := range res.Props {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(stdout, "  %-10s %s\n", name, formatProp(res.Props[name]))
	}
}

func formatProp(v any) string {
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', 6, 64)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', 6, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
