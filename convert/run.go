// Package convert wires together stylesheet fetching, parsing, font
// downloading and stylesheet rewriting.
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"fontdl/css"
	"fontdl/download"
	"fontdl/fetch"
	"fontdl/state"
)

const confirmQuestion = "The target directory is not empty. Do you want to continue? (y/n)"

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("missing embed URL, the first argument must be the embed URL, e.g. https://fonts.googleapis.com/css2?family=Fira+Sans:ital,wght@0,400;0,600;1,400;1,600&display=swap")
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		return errors.New("missing target directory")
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	// Google always sends proper charset, but other servers may lie
	cs := cmd.String("charset")
	if len(cs) > 0 {
		env.Charset, err = ianaindex.IANA.Encoding(cs)
		if err != nil || env.Charset == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cs), zap.Error(err))
			env.Charset = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.Charset)
			log.Debug("Forcefully decoding stylesheet", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, env, src, dst, os.Stdout, log)
}

// process handles the core logic independently of CLI framework: prepares
// target directory, fetches and parses stylesheet, writes rewritten
// stylesheet and downloads all fonts.
func process(ctx context.Context, env *state.LocalEnv, src, dst string, out io.Writer, log *zap.Logger) error {
	cfg := &env.Cfg.Download

	proceed, err := prepareTarget(env, dst, out, log)
	if err != nil {
		return err
	}
	if !proceed {
		log.Info("Target directory is not empty, nothing was done", zap.String("destination", dst))
		return nil
	}

	fontsDir := filepath.Join(dst, cfg.FontsDir)
	if err := os.MkdirAll(fontsDir, 0755); err != nil {
		return fmt.Errorf("unable to create fonts directory: %w", err)
	}

	client, err := fetch.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("unable to prepare http client: %w", err)
	}

	text, err := client.Text(ctx, src, env.Charset)
	if err != nil {
		return fmt.Errorf("unable to fetch stylesheet: %w", err)
	}
	env.Rpt.StoreData("stylesheets/source.css", []byte(text))

	parser := css.NewParser(log, css.WithRestMarker(cfg.RestMarker), css.WithFontsPrefix(cfg.FontsPrefix()))
	sheet, err := parser.Parse(text)
	if err != nil {
		return fmt.Errorf("unable to parse stylesheet: %w", err)
	}
	log.Debug("Stylesheet parsed", zap.Int("font faces", len(sheet.FontFaces)), zap.Int("rest", len(sheet.Rest)))

	if err := writeStylesheet(env, sheet, filepath.Join(dst, cfg.StylesheetName)); err != nil {
		return err
	}

	rpt := download.New(client, fontsDir, cfg, log).Run(ctx, sheet.FontFaces)

	failed := rpt.Failed()
	log.Info("Fonts processed", zap.Int("downloaded", rpt.Downloaded()), zap.Int("failed", len(failed)))
	if len(failed) > 0 {
		return fmt.Errorf("unable to download %d of %d fonts: %w", len(failed), len(rpt.Results), rpt.Err())
	}
	return nil
}

func writeStylesheet(env *state.LocalEnv, sheet *css.Stylesheet, fname string) error {
	text := css.Render(sheet.FontFaces, sheet.Rest, sheet.FontsPrefix)
	if err := os.WriteFile(fname, []byte(text), 0644); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	env.Rpt.StoreData("stylesheets/"+filepath.Base(fname), []byte(text))
	return nil
}

// prepareTarget makes sure target directory exists. When it is not empty
// user is asked for confirmation unless overwrite was requested.
func prepareTarget(env *state.LocalEnv, dst string, out io.Writer, log *zap.Logger) (bool, error) {
	entries, err := os.ReadDir(dst)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return false, fmt.Errorf("unable to access target directory: %w", err)
	case len(entries) > 0 && !env.Overwrite:
		if !confirm(env.Stdin, out, log) {
			return false, nil
		}
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return false, fmt.Errorf("unable to create target directory: %w", err)
	}
	return true, nil
}

// confirm asks question and reads answer from in, which may be a terminal or
// a pipe. Anything but "y" is negative, so is input without an answer.
func confirm(in io.Reader, out io.Writer, log *zap.Logger) bool {
	if in == nil {
		return false
	}

	fmt.Fprint(out, confirmQuestion+" ")
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && len(answer) == 0 {
		log.Warn("No answer to confirmation request (use --overwrite)", zap.Error(err))
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
