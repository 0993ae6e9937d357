package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/wikivault/internal"
	"github.com/starford/wikivault/internal/noteservice"
	"github.com/starford/wikivault/internal/periodic"
	pkgconfig "github.com/starford/wikivault/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if ws := cmd.String("workspace"); ws != "" {
		cfg.Workspace.Path = ws
	}
	if cmd.Bool("vault-scoped") {
		cfg.Resolver.VaultScoped = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

// withService opens a service for a one-shot command and prints what fn
// returns: indented JSON, or text when --text is set.
func withService(fn func(ctx context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		opts, err := options(cmd)
		if err != nil {
			return err
		}
		svc, closeFn, err := internal.OpenService(opts...)
		if err != nil {
			return err
		}
		defer closeFn()

		v, text, err := fn(ctx, cmd, svc)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, cmd.Bool("text"), v, text)
	}
}

func printResult(w io.Writer, asText bool, v any, text string) error {
	if asText {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() < 1 {
		return "", fmt.Errorf("%s: missing <%s> argument", cmd.Name, name)
	}
	return cmd.Args().First(), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func resolveCmd(ctx context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	link, err := requireArg(cmd, "link")
	if err != nil {
		return nil, "", err
	}
	target, err := svc.ResolveLink(ctx, cmd.String("from"), link)
	if err != nil {
		return nil, "", err
	}
	return target, target.Path, nil
}

func checkCmd(ctx context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	p, err := requireArg(cmd, "note")
	if err != nil {
		return nil, "", err
	}
	report, err := svc.CheckLinks(ctx, p)
	if err != nil {
		return nil, "", err
	}
	text := fmt.Sprintf("%s: %d links, %d broken", report.Path, len(report.Links), report.Broken)
	for _, l := range report.Links {
		state := "ok    "
		if !l.Found {
			state = "broken"
		}
		text += fmt.Sprintf("\n  %s %d: %s %s", state, l.Line, l.Raw, l.Path)
	}
	return report, text, nil
}

func completeCmd(ctx context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	items, err := svc.Complete(ctx, cmd.String("from"), cmd.Args().First(), int(cmd.Int("limit")))
	if err != nil {
		return nil, "", err
	}
	var text string
	for i, c := range items {
		if i > 0 {
			text += "\n"
		}
		text += c.Name + "\t" + c.Path
	}
	return items, text, nil
}

func rootCmd(_ context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	p, err := requireArg(cmd, "path")
	if err != nil {
		return nil, "", err
	}
	root, err := svc.DetectRoot(p)
	if err != nil {
		return nil, "", err
	}
	return map[string]string{"path": p, "root": root}, root, nil
}

func periodicCmd(ctx context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	raw, err := requireArg(cmd, "period")
	if err != nil {
		return nil, "", err
	}
	p, err := periodic.ParsePeriod(raw)
	if err != nil {
		return nil, "", err
	}
	date, err := parseDate(cmd.String("date"))
	if err != nil {
		return nil, "", err
	}
	note, err := svc.PeriodicNote(ctx, cmd.String("vault"), cmd.String("from"), p, date, cmd.Bool("create"))
	if err != nil {
		return nil, "", err
	}
	text := note.Path
	if !note.Exists {
		text = note.Filename + " (missing)"
	}
	return note, text, nil
}

func formatCmd(_ context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	raw, err := requireArg(cmd, "period")
	if err != nil {
		return nil, "", err
	}
	p, err := periodic.ParsePeriod(raw)
	if err != nil {
		return nil, "", err
	}
	date, err := parseDate(cmd.String("date"))
	if err != nil {
		return nil, "", err
	}
	if date.IsZero() {
		date = time.Now()
	}
	name := svc.FormatDate(p, date, cmd.String("format"))
	return map[string]string{"period": p.String(), "filename": name}, name, nil
}

func vaultsCmd(ctx context.Context, cmd *cli.Command, svc *noteservice.Service) (any, string, error) {
	vaults, err := svc.Vaults(ctx)
	if err != nil {
		return nil, "", err
	}
	return vaults, svc.DescribeVaults(), nil
}

func fromFlag() cli.Flag {
	return &cli.StringFlag{Name: "from", Usage: "Note containing the link, relative to the workspace"}
}

func dateFlag() cli.Flag {
	return &cli.StringFlag{Name: "date", Usage: "Date as YYYY-MM-DD (default today)"}
}

func main() {
	cmd := &cli.Command{
		Name:    "wikivault",
		Usage:   "Wikilink resolution, vault detection, and periodic notes for Markdown vaults",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (YAML, or TOML by extension)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "Workspace directory, overrides workspace.path",
				Sources: cli.EnvVars("WIKIVAULT_WORKSPACE"),
			},
			&cli.BoolFlag{
				Name:  "vault-scoped",
				Usage: "Resolve links inside the source note's vault only",
			},
			&cli.BoolFlag{
				Name:  "text",
				Usage: "Print plain text instead of JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with index watcher and event stream",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a wikilink to a note path",
				ArgsUsage: "<link>",
				Flags:     []cli.Flag{fromFlag()},
				Action:    withService(resolveCmd),
			},
			{
				Name:      "check",
				Usage:     "Report every wikilink in a note and whether it resolves",
				ArgsUsage: "<note>",
				Action:    withService(checkCmd),
			},
			{
				Name:      "complete",
				Usage:     "Suggest note names for a link prefix",
				ArgsUsage: "[prefix]",
				Flags: []cli.Flag{
					fromFlag(),
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum suggestions"},
				},
				Action: withService(completeCmd),
			},
			{
				Name:      "root",
				Usage:     "Print the vault root detected for a path",
				ArgsUsage: "<path>",
				Action:    withService(rootCmd),
			},
			{
				Name:      "periodic",
				Usage:     "Find or create a periodic note",
				ArgsUsage: "<daily|weekly|monthly|quarterly|yearly>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "vault", Usage: "Vault name (optional with a single vault)"},
					&cli.StringFlag{Name: "from", Usage: "Pick the vault containing this path when --vault is empty"},
					dateFlag(),
					&cli.BoolFlag{Name: "create", Usage: "Create the note from its template when missing"},
				},
				Action: withService(periodicCmd),
			},
			{
				Name:      "format",
				Usage:     "Format a date as a periodic note name",
				ArgsUsage: "<period>",
				Flags: []cli.Flag{
					dateFlag(),
					&cli.StringFlag{Name: "format", Usage: "Moment-style format (default per period)"},
				},
				Action: withService(formatCmd),
			},
			{
				Name:   "vaults",
				Usage:  "List discovered vaults and their periodic settings",
				Action: withService(vaultsCmd),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
