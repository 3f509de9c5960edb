package main

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// progressWriteSeeker forwards every Write to a *os.File while also
// feeding the same bytes to a progress bar, and forwards Seek unchanged
// so the single seek-backward g7z.Writer performs to patch the start
// header still lands on the real file.
type progressWriteSeeker struct {
	f   *os.File
	bar *progressbar.ProgressBar
}

var _ io.WriteSeeker = (*progressWriteSeeker)(nil)

func (p *progressWriteSeeker) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	if n > 0 {
		_, _ = p.bar.Write(b[:n])
	}
	return n, err
}

func (p *progressWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	return p.f.Seek(offset, whence)
}
