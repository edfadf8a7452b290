// Command tychkd is the native-protocol server and CLI client for the
// incremental type-checking engine, mirroring the teacher's single
// cli.App entrypoint (cmd/lci/main.go): one binary, config-driven,
// with subcommands that either start the daemon or talk to a running
// one over its Unix socket.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pkraison/pyre-check/internal/config"
	"github.com/pkraison/pyre-check/internal/diag"
	"github.com/pkraison/pyre-check/internal/dispatch"
	"github.com/pkraison/pyre-check/internal/env"
	"github.com/pkraison/pyre-check/internal/env/testenv"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/lsp"
	"github.com/pkraison/pyre-check/internal/scheduler"
	"github.com/pkraison/pyre-check/internal/socket"
	"github.com/pkraison/pyre-check/internal/typequery"
	"github.com/pkraison/pyre-check/internal/watch"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "tychkd",
		Usage:   "incremental type-checking server and client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Value:   ".tychk.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root (overrides config)",
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "Unix socket path (overrides config-derived default)",
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			checkCommand,
			queryCommand,
			errorsCommand,
			stopCommand,
			flushCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tychkd:", err)
		os.Exit(1)
	}
}

// loadConfig applies the same override order as the teacher's
// loadConfigWithOverrides: --root wins over the config file's project
// root, and configPath defaults relative to --root when left at its
// default value.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	root := c.String("root")
	if root != "" && configPath == ".tychk.kdl" {
		configPath = ""
	}
	cfg, err := config.Load(configPath, root)
	if err != nil {
		return nil, err
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			cfg.Project.Root = abs
		}
	}
	return cfg, nil
}

func socketPath(c *cli.Context, cfg *config.Config) string {
	if p := c.String("socket"); p != "" {
		return p
	}
	if cfg.Server.SocketPath != "" {
		return cfg.Server.SocketPath
	}
	return handle.SocketNameForRoot(cfg.Project.Root)
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the type-checking server, listening on its Unix socket",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		switch strings.ToLower(cfg.Server.LogLevel) {
		case "silent":
			diag.SetLevel(diag.LevelSilent)
		case "verbose":
			diag.SetLevel(diag.LevelVerbose)
		default:
			diag.SetLevel(diag.LevelInfo)
		}

		sockPath := socketPath(c, cfg)

		// A real Parser/Analyzer/Environment implementation is outside
		// this engine's scope (spec.md §1): testenv's fakes stand in as
		// the seam's default binding, the same way the interfaces in
		// internal/env document the boundary the pipeline is built
		// against. Swapping in a real one is a matter of satisfying
		// env.Environment/Parser/Analyzer/ASTStore and passing it here.
		fake := testenv.New()

		sched := scheduler.New(cfg.Scheduler.MaxWorkers)
		state := dispatch.NewServerState(fake, fake, sched)

		var stopOnce bool
		disp := &dispatch.Dispatcher{
			State:    state,
			ASTs:     fake,
			Parser:   fake,
			Analyzer: fake,
			Config: dispatch.Config{
				LocalRoot:         cfg.Project.Root,
				StubSuffix:        cfg.Environment.StubSuffix,
				ParallelThreshold: cfg.Scheduler.ParallelThreshold,
				Exclude:           config.NewExcludeMatcher(cfg),
			},
		}
		disp.SetDecoder(lsp.Parse)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Every request, whether it arrives over a client connection or
		// from the watcher's debounced recheck, is funneled through this
		// single goroutine so ServerState is only ever mutated there
		// (spec.md §5).
		ser := dispatch.NewSerializer(disp)
		go ser.Run(ctx)

		disp.Stop = func(reason string) {
			if stopOnce {
				return
			}
			stopOnce = true
			diag.Info("tychkd: stopping (%s)", reason)
			cancel()
		}

		var watcher *watch.Watcher
		if cfg.Watch.Enabled {
			registry := watch.NewRegistry()
			state.Notifiers = registry
			watcher, err = watch.New(cfg.Project.Root, cfg.Watch.DebounceMs, registry, func(relPath string) {
				f := handle.New(cfg.Project.Root, relPath)
				req := dispatch.TypeCheckRequest{UpdateEnvironmentWith: []handle.File{f}, Check: []handle.File{f}}
				if _, err := ser.Handle(ctx, noopSocket{}, req); err != nil {
					diag.Info("tychkd: watch recheck of %s failed: %v", relPath, err)
				}
			})
			if err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer watcher.Close()
		}

		srv, err := socket.Listen(sockPath, ser.Handle)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", sockPath, err)
		}
		defer os.Remove(sockPath)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case <-sigCh:
				disp.Stop("signal")
			case <-ctx.Done():
			}
		}()

		diag.Info("tychkd: listening on %s", sockPath)
		serveErr := srv.Serve(ctx)
		_ = srv.Stop()
		if serveErr != nil && ctx.Err() == nil {
			return serveErr
		}
		return nil
	},
}

// noopSocket satisfies dispatch.Socket for requests dispatched outside
// a client connection (the watcher's inline recheck never expects a
// Send call — TypeCheckRequest never uses the socket argument).
type noopSocket struct{}

func (noopSocket) Send(dispatch.Response) error { return nil }

func withClient(c *cli.Context, fn func(cl *socket.Client, cfg *config.Config) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cl, err := socket.Dial(socketPath(c, cfg))
	if err != nil {
		return fmt.Errorf("connect to server (is it running?): %w", err)
	}
	defer cl.Close()
	return fn(cl, cfg)
}

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "type-check the given files (relative to the project root)",
	ArgsUsage: "[files...]",
	Action: func(c *cli.Context) error {
		return withClient(c, func(cl *socket.Client, cfg *config.Config) error {
			files := make([]handle.File, 0, c.NArg())
			for _, rel := range c.Args().Slice() {
				files = append(files, handle.New(cfg.Project.Root, rel))
			}
			resp, err := cl.Call(dispatch.TypeCheckRequest{Check: files})
			if err != nil {
				return err
			}
			tc, ok := resp.(dispatch.TypeCheckResponse)
			if !ok {
				return fmt.Errorf("unexpected response %s", resp.Kind())
			}
			return printJSON(tc.Files)
		})
	},
}

var errorsCommand = &cli.Command{
	Name:      "errors",
	Usage:     "display currently tracked type errors, optionally filtered by file",
	ArgsUsage: "[files...]",
	Action: func(c *cli.Context) error {
		return withClient(c, func(cl *socket.Client, cfg *config.Config) error {
			files := make([]handle.File, 0, c.NArg())
			for _, rel := range c.Args().Slice() {
				files = append(files, handle.New(cfg.Project.Root, rel))
			}
			resp, err := cl.Call(dispatch.DisplayTypeErrorsRequest{Files: files})
			if err != nil {
				return err
			}
			tc, ok := resp.(dispatch.TypeCheckResponse)
			if !ok {
				return fmt.Errorf("unexpected response %s", resp.Kind())
			}
			return printJSON(tc.Files)
		})
	},
}

var flushCommand = &cli.Command{
	Name:  "flush",
	Usage: "drain any deferred rechecks and report the resulting errors",
	Action: func(c *cli.Context) error {
		return withClient(c, func(cl *socket.Client, cfg *config.Config) error {
			resp, err := cl.Call(dispatch.FlushTypeErrorsRequest{})
			if err != nil {
				return err
			}
			tc, ok := resp.(dispatch.TypeCheckResponse)
			if !ok {
				return fmt.Errorf("unexpected response %s", resp.Kind())
			}
			return printJSON(tc.Files)
		})
	},
}

var stopCommand = &cli.Command{
	Name:  "stop",
	Usage: "stop the running server",
	Action: func(c *cli.Context) error {
		return withClient(c, func(cl *socket.Client, cfg *config.Config) error {
			if err := cl.Send(dispatch.StopRequest{}); err != nil {
				return err
			}
			fmt.Println("stop requested")
			return nil
		})
	},
}

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "run a type query against the server",
	ArgsUsage: "<kind> [args...]",
	Description: strings.Join([]string{
		"kinds and their positional args:",
		"  attributes <class>",
		"  methods <class>",
		"  join <a> <b>",
		"  meet <a> <b>",
		"  less_or_equal <a> <b>",
		"  normalize_type <expr>",
		"  signature <name>",
		"  superclasses <class>",
		"  type_at_location <path> <line> <column>",
	}, "\n"),
	Action: func(c *cli.Context) error {
		q, err := parseQuery(c.Args().Slice())
		if err != nil {
			return err
		}
		return withClient(c, func(cl *socket.Client, cfg *config.Config) error {
			resp, err := cl.Call(dispatch.TypeQueryRequest{Query: q})
			if err != nil {
				return err
			}
			tq, ok := resp.(dispatch.TypeQueryResponse)
			if !ok {
				return fmt.Errorf("unexpected response %s", resp.Kind())
			}
			return printJSON(tq.Result)
		})
	},
}

func parseQuery(args []string) (typequery.Query, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("query: missing kind")
	}
	kind, rest := args[0], args[1:]
	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("query %s: expected %d argument(s), got %d", kind, n, len(rest))
		}
		return nil
	}
	switch kind {
	case "attributes":
		if err := need(1); err != nil {
			return nil, err
		}
		return typequery.AttributesQuery{Class: rest[0]}, nil
	case "methods":
		if err := need(1); err != nil {
			return nil, err
		}
		return typequery.MethodsQuery{Class: rest[0]}, nil
	case "join":
		if err := need(2); err != nil {
			return nil, err
		}
		return typequery.JoinQuery{A: rest[0], B: rest[1]}, nil
	case "meet":
		if err := need(2); err != nil {
			return nil, err
		}
		return typequery.MeetQuery{A: rest[0], B: rest[1]}, nil
	case "less_or_equal":
		if err := need(2); err != nil {
			return nil, err
		}
		return typequery.LessOrEqualQuery{A: rest[0], B: rest[1]}, nil
	case "normalize_type":
		if err := need(1); err != nil {
			return nil, err
		}
		return typequery.NormalizeTypeQuery{Expr: rest[0]}, nil
	case "signature":
		if err := need(1); err != nil {
			return nil, err
		}
		return typequery.SignatureQuery{Name: rest[0]}, nil
	case "superclasses":
		if err := need(1); err != nil {
			return nil, err
		}
		return typequery.SuperclassesQuery{Class: rest[0]}, nil
	case "type_at_location":
		if err := need(3); err != nil {
			return nil, err
		}
		line, col := 0, 0
		if _, err := fmt.Sscanf(rest[1], "%d", &line); err != nil {
			return nil, fmt.Errorf("query type_at_location: bad line %q", rest[1])
		}
		if _, err := fmt.Sscanf(rest[2], "%d", &col); err != nil {
			return nil, fmt.Errorf("query type_at_location: bad column %q", rest[2])
		}
		return typequery.TypeAtLocationQuery{
			Path:  rest[0],
			Start: env.Position{Line: line, Column: col},
		}, nil
	default:
		return nil, fmt.Errorf("query: unknown kind %q", kind)
	}
}

// printJSON writes v as indented JSON to stdout, the way every one-shot
// subcommand renders its decoded response.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
