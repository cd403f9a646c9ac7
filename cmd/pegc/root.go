package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pegkit/pegc"
	"github.com/pegkit/pegc/ascii"
)

// errReported is returned by commands that already printed why they
// failed
var errReported = errors.New("problems found")

const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// globalParams are the flags shared by every command and what's built
// from them before a command runs
type globalParams struct {
	configFile string
	logLevel   string
	logFormat  string
	color      string
	settings   []string

	stdout io.Writer
	stderr io.Writer
	logger *logrus.Logger
	config *pegc.Config
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	gp := &globalParams{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "pegc",
		Short:         "PEG grammar compiler",
		Long:          "Compile grammar ASTs into javascript parsers, check them and inspect their bytecode.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return gp.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&gp.configFile, "config", "", "YAML or JSON file with default values for the flags")
	flags.StringVar(&gp.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&gp.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&gp.color, "color", colorAuto, "colored output: auto, always or never")
	flags.StringArrayVar(&gp.settings, "set", nil, "override a compiler setting, as key=value")

	root.AddCommand(
		newCompileCommand(gp),
		newCheckCommand(gp),
		newPrintCommand(gp),
		newParseCommand(gp),
		newSettingsCommand(gp),
		newVersionCommand(gp),
	)
	return root
}

func (gp *globalParams) setup(cmd *cobra.Command) error {
	fileSettings, err := bindEnvironment(cmd, gp.configFile)
	if err != nil {
		return err
	}

	gp.logger = logrus.New()
	gp.logger.SetOutput(gp.stderr)
	level, err := logrus.ParseLevel(gp.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", gp.logLevel)
	}
	gp.logger.SetLevel(level)
	switch gp.logFormat {
	case "text":
		gp.logger.SetFormatter(&prettyFormatter{theme: gp.themeFor(gp.stderr)})
	case "json":
		gp.logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", gp.logFormat)
	}

	gp.config = pegc.NewConfig()
	keys := make([]string, 0, len(fileSettings))
	for k := range fileSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := gp.config.Parse(k, fileSettings[k]); err != nil {
			return err
		}
	}
	for _, s := range gp.settings {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid setting %q, expected key=value", s)
		}
		if err := gp.config.Parse(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}
	gp.logger.WithField("command", cmd.Name()).Debug("configured")
	return nil
}

// themeFor picks colors for what's written to `w`
func (gp *globalParams) themeFor(w io.Writer) ascii.Theme {
	switch gp.color {
	case colorAlways:
		return ascii.DefaultTheme
	case colorNever:
		return ascii.PlainTheme
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ascii.DefaultTheme
	}
	return ascii.PlainTheme
}
