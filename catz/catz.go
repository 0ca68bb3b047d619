package catz

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// DefaultGZipCompressionLevel trades a little size for speed on exports.
const DefaultGZipCompressionLevel = gzip.BestSpeed

type GZFileWriter struct {
	f      *os.File
	gzw    *gzip.Writer
	locked bool
	closed bool
}

type GZFileWriterConfig struct {
	CompressionLevel int
	Flag             int
	FilePerm         os.FileMode
	DirPerm          os.FileMode
}

// DefaultGZFileWriterConfig truncates; exports are rewritten whole.
func DefaultGZFileWriterConfig() *GZFileWriterConfig {
	return &GZFileWriterConfig{
		CompressionLevel: DefaultGZipCompressionLevel,
		Flag:             os.O_WRONLY | os.O_TRUNC | os.O_CREATE,
		FilePerm:         0660,
		DirPerm:          0770,
	}
}

func NewGZFileWriter(path string, config *GZFileWriterConfig) (*GZFileWriter, error) {
	if config == nil {
		config = DefaultGZFileWriterConfig()
	}
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, err
	}
	fi, err := os.OpenFile(path, config.Flag, config.FilePerm)
	if err != nil {
		return nil, err
	}
	gzw, err := gzip.NewWriterLevel(fi, config.CompressionLevel)
	if err != nil {
		fi.Close()
		return nil, err
	}
	return &GZFileWriter{f: fi, gzw: gzw}, nil
}

// Write locks the file for exclusive access on first write.
// The lock goes with the file descriptor on Close.
func (g *GZFileWriter) Write(p []byte) (int, error) {
	if !g.locked && !g.closed {
		_ = syscall.Flock(int(g.f.Fd()), syscall.LOCK_EX)
		g.locked = true
	}
	return g.gzw.Write(p)
}

func (g *GZFileWriter) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	if err := g.gzw.Close(); err != nil {
		g.f.Close()
		return err
	}
	if err := g.f.Sync(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

func (g *GZFileWriter) Path() string {
	return g.f.Name()
}

type GZFileReader struct {
	f      *os.File
	gzr    *gzip.Reader
	closed bool
}

func NewGZFileReader(path string) (*GZFileReader, error) {
	fi, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	g, err := newGZFileReader(fi, fi)
	if err != nil {
		fi.Close()
		return nil, err
	}
	return g, nil
}

// newGZFileReader decompresses r, which reads from f.
// f is closed along with the reader, unless it is stdin.
func newGZFileReader(f *os.File, r io.Reader) (*GZFileReader, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &GZFileReader{f: f, gzr: gzr}, nil
}

func (g *GZFileReader) Read(p []byte) (int, error) {
	return g.gzr.Read(p)
}

// Close closes the gzip reader and the file.
func (g *GZFileReader) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	err := g.gzr.Close()
	if g.f != os.Stdin {
		if ferr := g.f.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

func (g *GZFileReader) Path() string {
	return g.f.Name()
}

type plainReader struct {
	*bufio.Reader
	f *os.File
}

func (p plainReader) Close() error {
	if p.f == os.Stdin {
		return nil
	}
	return p.f.Close()
}

// OpenInput opens an NDJSON input.
// An empty path or "-" is stdin. Gzipped input is detected by its magic bytes,
// whatever the file is called.
func OpenInput(path string) (io.ReadCloser, error) {
	f := os.Stdin
	if path != "" && path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
	}
	in := plainReader{Reader: bufio.NewReader(f), f: f}

	magic, err := in.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		g, err := newGZFileReader(f, in)
		if err != nil {
			in.Close()
			return nil, err
		}
		return g, nil
	}
	if err != nil && err != io.EOF {
		in.Close()
		return nil, err
	}
	return in, nil
}
