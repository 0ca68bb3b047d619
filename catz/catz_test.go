package catz

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestGZFileWriter_RoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "export", "activities.ndjson.gz")
	w, err := NewGZFileWriter(target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("{\"motion\":\"Car\"}\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	r, err := NewGZFileReader(target)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{\"motion\":\"Car\"}\n" {
		t.Errorf("have %q", got)
	}
}

func TestOpenInput(t *testing.T) {
	dir := t.TempDir()
	content := "{\"type\":\"Feature\"}\n"

	plain := filepath.Join(dir, "plain.ndjson")
	if err := os.WriteFile(plain, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	// Gzipped, but not named like it.
	zipped := filepath.Join(dir, "zipped.ndjson")
	w, err := NewGZFileWriter(zipped, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(content))
	w.Close()

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path string
		want string
	}{
		{plain, content},
		{zipped, content},
		{empty, ""},
	}
	for _, c := range cases {
		r, err := OpenInput(c.path)
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		got, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		if string(got) != c.want {
			t.Errorf("%s: have %q want %q", c.path, got, c.want)
		}
	}

	if _, err := OpenInput(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestOpenInput_GZFileReader(t *testing.T) {
	zipped := filepath.Join(t.TempDir(), "tracks")
	w, err := NewGZFileWriter(zipped, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("{}\n"))
	w.Close()

	r, err := OpenInput(zipped)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := r.(*GZFileReader)
	if !ok {
		t.Fatalf("have %T want *GZFileReader", r)
	}
	if g.Path() != zipped {
		t.Errorf("have path %s want %s", g.Path(), zipped)
	}
	if err := g.Close(); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
