// Package download fetches font files referenced by a parsed stylesheet into a
// local directory. All font faces are downloaded concurrently, failure of one
// does not stop the others.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fontdl/config"
	"fontdl/css"
)

// Fetcher copies remote resource to w.
type Fetcher interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

// Downloader stores font files in a single directory.
type Downloader struct {
	fetcher  Fetcher
	dir      string
	parallel int
	verify   bool
	log      *zap.Logger
}

// New creates downloader writing into dir, which must exist.
func New(f Fetcher, dir string, cfg *config.DownloadConfig, log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{
		fetcher:  f,
		dir:      dir,
		parallel: cfg.Parallel,
		verify:   cfg.VerifyFormat,
		log:      log.Named("download"),
	}
}

// Run downloads all font faces and returns only when every download has
// finished. Results are in the same order as faces.
func (d *Downloader) Run(ctx context.Context, faces []css.FontFace) *Report {
	results := make([]Result, len(faces))

	var g errgroup.Group
	if d.parallel > 0 {
		g.SetLimit(d.parallel)
	}
	for i := range faces {
		g.Go(func() error {
			results[i] = d.fetch(ctx, &faces[i])
			return nil
		})
	}
	// never fails - errors are kept in results
	_ = g.Wait()

	return &Report{Results: results}
}

// fetch downloads single font face. Data goes to temporary file first so
// interrupted download never replaces existing font.
func (d *Downloader) fetch(ctx context.Context, ff *css.FontFace) Result {
	res := Result{Name: ff.LocalFileName, URL: ff.URL}

	if err := checkName(ff.LocalFileName); err != nil {
		res.Err = err
		d.log.Warn("Unable to download font", zap.String("name", res.Name), zap.Error(err))
		return res
	}

	path := filepath.Join(d.dir, ff.LocalFileName)
	tmp := filepath.Join(d.dir, "."+ff.LocalFileName+"."+uuid.NewString()+".part")

	head, size, err := d.store(ctx, ff.URL, tmp)
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		res.Err = err
		d.log.Warn("Unable to download font", zap.String("name", res.Name), zap.String("url", res.URL), zap.Error(err))
		return res
	}

	res.Path, res.Size = path, size
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		res.Format = kind.Extension
	}
	if d.verify && !filetype.Is(head, "woff2") {
		d.log.Warn("Downloaded file does not look like woff2 font", zap.String("name", res.Name), zap.String("detected", res.Format))
	}
	d.log.Info("Downloaded", zap.String("name", res.Name), zap.Int64("size", size))
	return res
}

// store writes remote resource to file and returns first bytes of it for
// format detection.
func (d *Downloader) store(ctx context.Context, url, fname string) ([]byte, int64, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to create file: %w", err)
	}

	head := &headBuffer{limit: 262}
	n, err := d.fetcher.Download(ctx, url, io.MultiWriter(f, head))
	if err != nil {
		f.Close()
		return nil, n, err
	}
	if err := f.Close(); err != nil {
		return nil, n, fmt.Errorf("unable to write file: %w", err)
	}
	return head.buf, n, nil
}

// checkName makes sure name derived from stylesheet cannot escape target
// directory.
func checkName(name string) error {
	if len(name) == 0 || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("unsafe file name '%s'", name)
	}
	return nil
}

// headBuffer keeps first limit bytes written to it.
type headBuffer struct {
	buf   []byte
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if rest := h.limit - len(h.buf); rest > 0 {
		h.buf = append(h.buf, p[:min(rest, len(p))]...)
	}
	return len(p), nil
}
