package server

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"duhashtsrv-golang/server/internal/config"
	"duhashtsrv-golang/server/internal/hashdb"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestServer(t *testing.T, hashLines ...string) *Server {
	t.Helper()
	dir := t.TempDir()
	hashFile := filepath.Join(dir, "hashes.txt")
	writeLines(t, hashFile, hashLines...)
	return &Server{
		cfg:  &config.Config{HashFile: hashFile, LogLevel: "info"},
		jdir: filepath.Join(dir, ".change-files"),
	}
}

func addChangeFile(t *testing.T, s *Server, name string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(s.jdir, 0o755); err != nil {
		t.Fatalf("mkdir change dir: %v", err)
	}
	writeLines(t, filepath.Join(s.jdir, name), lines...)
}

func TestMergeWithoutChangeFilesIsPlainLoad(t *testing.T) {
	p1 := hashdb.Pair{Hi: 1, Lo: 1}
	p2 := hashdb.Pair{Hi: 2, Lo: 2}
	s := newTestServer(t, p1.String(), p2.String())

	store, err := s.merge()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if store.Len() != 2 || !store.Contains(p1) || !store.Contains(p2) {
		t.Fatalf("store mismatch after merge-as-load, len=%d", store.Len())
	}

	if _, err := os.Stat(s.cfg.HashFile + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("no backup expected without change files, stat err: %v", err)
	}
}

func TestMergeDuplicatesOnlyLeavesHashFileUntouched(t *testing.T) {
	p1 := hashdb.Pair{Hi: 1, Lo: 1}
	p2 := hashdb.Pair{Hi: 2, Lo: 2}
	s := newTestServer(t, p1.String(), p2.String())
	addChangeFile(t, s, "1.0.txt", p1.String())

	before, err := os.ReadFile(s.cfg.HashFile)
	if err != nil {
		t.Fatalf("read hash file: %v", err)
	}

	store, err := s.merge()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected store of 2, got %d", store.Len())
	}

	after, err := os.ReadFile(s.cfg.HashFile)
	if err != nil {
		t.Fatalf("read hash file: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("hash file must not be rewritten when nothing was added")
	}

	bak, err := os.ReadFile(s.cfg.HashFile + ".bak")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !bytes.Equal(before, bak) {
		t.Fatalf("backup must be a byte-for-byte copy")
	}

	files, err := os.ReadDir(s.jdir)
	if err != nil {
		t.Fatalf("read change dir: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("change files must be removed even when nothing was added, got %d", len(files))
	}
}

func TestMergeAddsNewHashesAndRewrites(t *testing.T) {
	p1 := hashdb.Pair{Hi: 1, Lo: 1}
	p2 := hashdb.Pair{Hi: 2, Lo: 2}
	p3 := hashdb.Pair{Hi: 3, Lo: 3}
	p4 := hashdb.Pair{Hi: 4, Lo: 4}
	s := newTestServer(t, p1.String(), p3.String())
	addChangeFile(t, s, "1.0.txt", p2.String())
	addChangeFile(t, s, "2.0.txt", p3.String(), p4.String())

	store, err := s.merge()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if store.Len() != 4 {
		t.Fatalf("expected store of 4, got %d", store.Len())
	}

	after, err := os.ReadFile(s.cfg.HashFile)
	if err != nil {
		t.Fatalf("read hash file: %v", err)
	}
	want := p1.String() + "\n" + p2.String() + "\n" + p3.String() + "\n" + p4.String() + "\n"
	if string(after) != want {
		t.Fatalf("rewritten hash file mismatch:\n got %q\nwant %q", after, want)
	}

	bak, err := os.ReadFile(s.cfg.HashFile + ".bak")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(bak) != p1.String()+"\n"+p3.String()+"\n" {
		t.Fatalf("backup must hold the pre-merge file, got %q", bak)
	}

	files, err := os.ReadDir(s.jdir)
	if err != nil {
		t.Fatalf("read change dir: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected change files to be removed, got %d", len(files))
	}
}

func TestMergeAbortsOnMalformedChangeFile(t *testing.T) {
	p1 := hashdb.Pair{Hi: 1, Lo: 1}
	s := newTestServer(t, p1.String())
	addChangeFile(t, s, "1.0.txt", "definitely not a hash")

	if _, err := s.merge(); err == nil {
		t.Fatalf("expected merge to fail on malformed change file")
	}
}

func TestProbe(t *testing.T) {
	p1 := hashdb.Pair{Hi: 1, Lo: 1}
	s := newTestServer(t, p1.String())

	store, _, err := hashdb.Load(s.cfg.HashFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	s.cfg.Test = p1.String()
	if err := s.probe(store); err != nil {
		t.Fatalf("probe of present hash: %v", err)
	}

	s.cfg.Test = hashdb.Pair{Hi: 9, Lo: 9}.String()
	if err := s.probe(store); err != nil {
		t.Fatalf("probe of absent hash is still a success: %v", err)
	}

	s.cfg.Test = "tooshort"
	if err := s.probe(store); err == nil {
		t.Fatalf("expected malformed probe hash to fail")
	}
}
