package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/linuxmatters/dubstage/internal/cli"
	"github.com/linuxmatters/dubstage/internal/compose"
	"github.com/linuxmatters/dubstage/internal/config"
	"github.com/linuxmatters/dubstage/internal/logging"
	"github.com/linuxmatters/dubstage/internal/media"
	"github.com/linuxmatters/dubstage/internal/ui"
)

var (
	version = "0.0.1"
)

// CLI defines the command-line interface
type CLI struct {
	Version      bool   `short:"v" help:"Show version information"`
	Output       string `short:"o" type:"path" help:"Override the manifest's output path"`
	ReportDir    string `type:"path" help:"Override the manifest's report directory"`
	NoNormalize  bool   `help:"Hard-limit peaks above unity instead of normalizing"`
	Plain        bool   `help:"Line output instead of the full-screen TUI"`
	LogLevel     string `default:"info" help:"Log level: debug, info, warn, error"`
	LogFormat    string `default:"text" help:"Log format: text or json"`
	LogFile      string `type:"path" help:"Write logs to a file instead of stderr"`
	SampleConfig string `type:"path" help:"Write an annotated sample manifest and exit"`
	Manifest     string `arg:"" name:"manifest" help:"Session manifest (TOML)" type:"existingfile" optional:""`
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("dubstage"),
		kong.Description("Offline audio-visual composition engine"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	// Handle sample manifest generation
	if cliArgs.SampleConfig != "" {
		if err := config.CreateSample(cliArgs.SampleConfig); err != nil {
			cli.PrintError(err.Error())
			os.Exit(1)
		}
		fmt.Printf("Sample manifest written to %s\n", cliArgs.SampleConfig)
		os.Exit(0)
	}

	// Validate input
	if cliArgs.Manifest == "" {
		cli.PrintError("No session manifest specified")
		ctx.PrintUsage(false)
		os.Exit(1)
	}

	manifest, err := config.Load(cliArgs.Manifest)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	applyOverrides(manifest, cliArgs)

	tui := useTUI(cliArgs)
	log, closeLog, err := buildLogger(cliArgs, tui)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	defer closeLog()

	composer := &compose.Composer{
		Manifest: manifest,
		Media: compose.Collaborators{
			Decoder: media.FFmpegDecoder{},
			Frames:  media.FrameReader{},
			Encoder: media.FFmpegEncoder{},
		},
		Log: log,
	}

	if tui {
		err = runTUI(composer, manifest)
	} else {
		err = runPlain(composer)
	}
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// applyOverrides folds command-line flags over the loaded manifest
func applyOverrides(m *config.Manifest, args *CLI) {
	if args.Output != "" {
		m.Output.Path = args.Output
	}
	if args.ReportDir != "" {
		m.Output.ReportDir = args.ReportDir
	}
	if args.NoNormalize {
		m.Session.Normalize = false
	}
}

// useTUI reports whether to run the full-screen interface
func useTUI(args *CLI) bool {
	if args.Plain {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// buildLogger wires the slog logger the orchestrator gets. Under the TUI the
// alternate screen owns the terminal, so logs are dropped unless a file is
// given.
func buildLogger(args *CLI, tui bool) (*slog.Logger, func(), error) {
	if args.LogFile != "" {
		f, err := os.OpenFile(args.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		log, err := logging.New(logging.Options{
			Level:  args.LogLevel,
			Format: args.LogFormat,
			Output: f,
		})
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return log, func() { f.Close() }, nil
	}

	if tui {
		return logging.Discard(), func() {}, nil
	}

	log, err := logging.New(logging.Options{
		Level:  args.LogLevel,
		Format: args.LogFormat,
	})
	if err != nil {
		return nil, nil, err
	}
	return log, func() {}, nil
}

// runTUI drives the composition behind the Bubbletea interface
func runTUI(composer *compose.Composer, manifest *config.Manifest) error {
	model := ui.NewModel(manifest.Source, manifest.Output.Path)
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	composer.Progress = func(stage compose.Stage, detail string, done, total int) {
		p.Send(ui.ProgressMsg{Stage: stage, Detail: detail, Done: done, Total: total})
	}

	// Run the composition in the background; the UI quits on DoneMsg
	go func() {
		res, err := composer.Run(ctx)
		p.Send(ui.DoneMsg{Result: res, Err: err})
	}()

	finalModel, err := p.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}

	m, ok := finalModel.(ui.Model)
	if !ok || !m.Done {
		return errors.New("composition cancelled")
	}
	if m.Err != nil {
		return m.Err
	}

	// The alternate screen is gone; leave the summary in the scrollback
	fmt.Println(m.Result.Report.Render())
	fmt.Printf("Output: %s\n", m.Result.OutputPath)
	fmt.Printf("Report: %s\n", m.Result.ReportPath)
	return nil
}

// runPlain drives the composition with line output, for pipes and scripts
func runPlain(composer *compose.Composer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	composer.Progress = func(stage compose.Stage, detail string, done, total int) {
		switch {
		case detail != "":
			fmt.Printf("[%s] %d/%d %s\n", stage, done+1, total, detail)
		case total > 0 && done >= total:
			fmt.Printf("[%s] done\n", stage)
		}
	}

	res, err := composer.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(res.Report.Render())
	fmt.Printf("Output: %s\n", res.OutputPath)
	fmt.Printf("Report: %s\n", res.ReportPath)
	return nil
}
