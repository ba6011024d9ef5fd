package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docmerge/state"
	"docmerge/utils/debug"
)

// ListFields is the fields command action: prints merge fields of every
// processed template part.
func ListFields(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Named("fields")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no template has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many templates", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	tmpl, err := Open(src, &env.Cfg.Document, log)
	if err != nil {
		return fmt.Errorf("unable to open template: %w", err)
	}
	parts, err := tmpl.Fields()
	if err != nil {
		return err
	}
	return printFields(cmd.Root().Writer, parts)
}

// printFields writes fields of every part having any, block content is
// indented.
func printFields(w io.Writer, parts []PartFields) error {
	if w == nil {
		w = os.Stdout
	}
	tw := debug.NewTreeWriter()
	for _, p := range parts {
		if len(p.Fields) == 0 {
			continue
		}
		tw.Line(0, "%s", p.Part)
		depth := 1
		for _, f := range p.Fields {
			if closesBlock(f) {
				depth = max(depth-1, 1)
			}
			tw.Line(depth, "%s", f)
			if opensBlock(f) {
				depth++
			}
		}
	}
	_, err := tw.WriteTo(w)
	return err
}

func opensBlock(field string) bool {
	if strings.HasPrefix(field, "@") {
		return strings.HasSuffix(field, ":start")
	}
	return strings.Contains(field, ":each(") || (strings.Contains(field, ":if") && !strings.HasSuffix(field, ":endIf"))
}

func closesBlock(field string) bool {
	if strings.HasPrefix(field, "@") {
		return strings.HasSuffix(field, ":end")
	}
	return strings.HasSuffix(field, ":endEach") || strings.HasSuffix(field, ":endIf")
}
