package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"docmerge/archive"
	"docmerge/state"
)

// Run is the render command action: TEMPLATE DATA [DESTINATION].
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Named("render")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no template has been specified")
	}
	data := cmd.Args().Get(1)
	if len(data) == 0 {
		return errors.New("no data file has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if data, err = filepath.Abs(data); err != nil {
		return err
	}

	dst := cmd.Args().Get(2)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 3 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[3:]))
	}

	env.Overwrite = cmd.Bool("overwrite")
	if cmd.IsSet("start-page") {
		n := int(cmd.Int("start-page"))
		if n < 0 {
			return fmt.Errorf("start page number must not be negative: %d", n)
		}
		env.StartPage = &n
	}

	log.Info("Processing starting", zap.String("template", src), zap.String("data", data), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return render(ctx, src, data, dst, log)
}

// render handles single merge independently of CLI framework.
func render(ctx context.Context, src, dataName, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("unable to generate render id: %w", err)
	}
	log = log.With(zap.Stringer("id", id))

	var outputName string
	defer func(start time.Time) {
		// image decoders are known to panic on malformed input
		if r := recover(); r != nil {
			log.Error("Render ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("render panic: %v", r)
		} else if rerr == nil {
			log.Info("Render completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	if env.Rpt != nil {
		if err := env.Rpt.StoreCopy("input/"+filepath.Base(src), src); err != nil {
			log.Warn("Unable to store template in the report", zap.Error(err))
		}
		if err := env.Rpt.StoreCopy("input/"+filepath.Base(dataName), dataName); err != nil {
			log.Warn("Unable to store data file in the report", zap.Error(err))
		}
	}

	tmpl, err := Open(src, &env.Cfg.Document, log)
	if err != nil {
		return fmt.Errorf("unable to open template: %w", err)
	}
	data, err := LoadData(dataName, &env.Cfg.Document.Images, log)
	if err != nil {
		return err
	}
	if env.StartPage != nil {
		data.Properties.StartPageNumber = env.StartPage
	}

	ri := &renderInfo{template: src, data: dataName, id: id.String(), date: time.Now(), props: data.Properties}
	outputName = buildOutputPath(ri, dst, env)
	if err := prepareOutput(outputName, env.Overwrite, log); err != nil {
		return err
	}

	if err := writeResult(ctx, tmpl, data, outputName, env.Cfg.Document.FixZip); err != nil {
		return err
	}

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", id, filepath.Ext(outputName)), outputName)
	}
	return nil
}

// prepareOutput checks if output file already exists and creates missing
// directories. Existing file is kept until the new result is ready.
func prepareOutput(name string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(name); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", name)
		}
		log.Warn("Overwriting existing file", zap.String("file", name))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

// writeResult renders into a hidden file next to the destination and moves it
// in place only after everything succeeded.
func writeResult(ctx context.Context, tmpl *Template, data *Data, name string, fix bool) error {
	rendered, err := tempOutput(name)
	if err != nil {
		return err
	}
	defer os.Remove(rendered)

	if err := renderToFile(ctx, tmpl, data, rendered); err != nil {
		return err
	}

	result := rendered
	if fix {
		fixed, err := tempOutput(name)
		if err != nil {
			return err
		}
		defer os.Remove(fixed)
		if err := archive.FixZip(rendered, fixed); err != nil {
			return fmt.Errorf("unable to fix zip: %w", err)
		}
		result = fixed
	}

	if err := os.Chmod(result, 0644); err != nil {
		return fmt.Errorf("unable to set output file mode: %w", err)
	}
	if err := os.Rename(result, name); err != nil {
		return fmt.Errorf("unable to replace output file: %w", err)
	}
	return nil
}

func tempOutput(name string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return "", fmt.Errorf("unable to create temporary file: %w", err)
	}
	f.Close()
	return f.Name(), nil
}

func renderToFile(ctx context.Context, tmpl *Template, data *Data, name string) (err error) {
	// rendering is done in memory, so there is no partial output on failure
	var buf bytes.Buffer
	if err := tmpl.Render(ctx, &buf, data); err != nil {
		return fmt.Errorf("unable to render %s: %w", tmpl.Name(), err)
	}

	out, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(name)
		}
	}()
	_, err = buf.WriteTo(out)
	return err
}
