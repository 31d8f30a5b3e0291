// Command modsearch downloads the module definitions of an application and
// searches them for a keyword.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/dgallion1/modsearch/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app carries what the commands share. Tests replace fs, out and prompt.
type app struct {
	cfg    config.Config
	fs     afero.Fs
	out    io.Writer
	errOut io.Writer
	log    *slog.Logger
	styled bool

	// prompt reads a value from the user; secret input is not echoed.
	prompt func(label string, secret bool) (string, error)

	envFile string
	verbose bool
}

func main() {
	a := &app{
		fs:     afero.NewOsFs(),
		out:    os.Stdout,
		errOut: os.Stderr,
		styled: term.IsTerminal(int(os.Stdout.Fd())),
		prompt: terminalPrompt,
	}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "modsearch",
		Short:         "Search low-code module definitions for a keyword",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load settings from this env file instead of ./.env")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newDownloadCmd(a), newSearchCmd(a), newModulesCmd(a))
	return root
}

// setup loads configuration and sets up logging.
func (a *app) setup() error {
	if a.envFile != "" {
		cfg, err := config.LoadFile(a.envFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Load()
	}

	level := a.cfg.Level()
	if a.verbose {
		level = slog.LevelDebug
	}
	handler := charmlog.NewWithOptions(a.errOut, charmlog.Options{
		Prefix: "modsearch",
		Level:  charmlog.Level(level),
	})
	a.log = slog.New(handler)
	return nil
}

func terminalPrompt(label string, secret bool) (string, error) {
	fmt.Fprint(os.Stderr, label)
	if secret {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("cannot prompt for %s: stdin is not a terminal", strings.TrimSpace(strings.TrimSuffix(label, ": ")))
		}
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
