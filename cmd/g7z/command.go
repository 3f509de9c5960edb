package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/nguyengg/g7z"
	"github.com/nguyengg/g7z/internal"
	"github.com/nguyengg/g7z/util"
)

// run drives a single g7z.Writer through the public API: construct, enqueue
// every positional path (walking directories recursively), then Finish.
func run() error {
	stem, ext := util.StemAndExt(string(opts.Output))
	dst, err := util.OpenExclFile(".", stem, ext, 0644)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer dst.Close()

	bar := internal.DefaultBytes(-1, util.DirBase(dst.Name()))
	defer func() { _ = bar.Close() }()

	w, err := g7z.New(&progressWriteSeeker{f: dst, bar: bar},
		g7z.WithPreset(opts.Preset),
		g7z.WithWorkers(opts.Workers),
		g7z.WithBlockSize(opts.BlockSize),
		g7z.WithDictSize(opts.DictSize),
		g7z.WithLogger(log.New(os.Stderr, "", 0)))
	if err != nil {
		_ = os.Remove(dst.Name())
		return fmt.Errorf("construct writer: %w", err)
	}

	n := len(opts.Args.Paths)
	for i, path := range opts.Args.Paths {
		ctx := internal.WithPrefixLogger(context.Background(), internal.Prefix(i, n, path))
		if err = addPath(ctx, w, string(path)); err != nil {
			_ = os.Remove(dst.Name())
			return fmt.Errorf(`add "%s": %w`, path, err)
		}
	}

	if err = w.Finish(); err != nil {
		_ = os.Remove(dst.Name())
		return fmt.Errorf("finish archive: %w", err)
	}

	if fi, serr := dst.Stat(); serr == nil {
		log.Printf("wrote %s (%s)", dst.Name(), humanize.Bytes(uint64(fi.Size())))
	}

	return nil
}

// addPath enqueues path into w, logging each file added under ctx's prefix
// logger. If path is a directory, it is walked recursively and every
// regular file is added with an archive name rooted at the directory's
// own base name, e.g. "mydir/sub/file.txt"; empty directories are skipped
// since this core has no directory entries.
func addPath(ctx context.Context, w *g7z.Writer, path string) error {
	logger := internal.MustLogger(ctx)

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if !fi.IsDir() {
		if err = w.EnqueueFile(path, filepath.Base(path)); err != nil {
			return err
		}
		logger.Printf("added %s", path)
		return nil
	}

	base := filepath.Base(path)
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, rerr := filepath.Rel(path, p)
		if rerr != nil {
			return fmt.Errorf("relativize %s: %w", p, rerr)
		}

		name := filepath.ToSlash(filepath.Join(base, rel))
		if err = w.EnqueueFile(p, name); err != nil {
			return err
		}
		logger.Printf("added %s", name)
		return nil
	})
}
