package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docmerge/config"
	"docmerge/merge"
	"docmerge/misc"
	"docmerge/state"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "mail merge engine for word (docx) documents",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          setupEnv,
		After:           teardownEnv,
		OnUsageError:    onUsageError,
		ExitErrHandler:  onExitError,
		CommandNotFound: onCommandNotFound,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{renderCommand(), fieldsCommand(), dumpConfigCommand()},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:         "render",
		Usage:        "Merges data file into document template",
		OnUsageError: onUsageError,
		Action:       merge.Run,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "overwrite resulting file if it exists"},
			&cli.IntFlag{Name: "start-page", Aliases: []string{"sp"}, Usage: "starting page `NUMBER` of the last section, overrides data file and configuration"},
		},
		ArgsUsage: "TEMPLATE DATA [DESTINATION]",
		CustomHelpTemplate: fmt.Sprintf(`%s
TEMPLATE:
    word document (docx) with merge fields

DATA:
    YAML or JSON file with "context" and optional "properties" sections,
    scalars tagged "!image" are paths to pictures relative to data file

DESTINATION:
    resulting file when path ends with ".docx", otherwise directory to put
    result into, file name is derived from configuration
    if absent - current working directory
`, cli.CommandHelpTemplate),
	}
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:         "fields",
		Usage:        "Lists merge fields of every processed template part",
		OnUsageError: onUsageError,
		Action:       merge.ListFields,
		ArgsUsage:    "TEMPLATE",
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "Dumps either default or actual configuration (YAML)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
		},
		OnUsageError: onUsageError,
		Action:       outputConfiguration,
		ArgsUsage:    "DESTINATION",
		CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Actual configuration is composition of default values and values from
configuration file. Use --default to see configuration embedded into the
program.
`, cli.CommandHelpTemplate),
	}
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	var (
		data []byte
		kind = "actual"
	)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Outputing configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
		return err
	}

	env.Log.Info("Outputing configuration", zap.String("state", kind), zap.String("file", fname))
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
