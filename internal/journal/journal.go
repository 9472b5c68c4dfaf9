// Package journal records hashes accepted by an update request as change
// files: one file per request, one canonical hex line per hash, pending
// until the next startup merge folds them into the primary hash file.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"duhashtsrv-golang/server/internal/hashdb"
	apperrors "duhashtsrv-golang/server/internal/pkg/errors"
)

// DefaultDir is the change-file directory, relative to the working
// directory.
const DefaultDir = ".change-files"

// Entry is one change file in progress.
type Entry struct {
	f    *os.File
	path string
}

// Begin ensures dir exists and opens a fresh change file named after the
// current wall clock with nanosecond resolution. Two requests landing on
// the same nanosecond is treated as negligible, not impossible, which is
// why the open insists on creating the file.
func Begin(dir string) (*Entry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.IO(apperrors.CodeChangeDirCheckFail, err)
	}

	now := time.Now()
	name := fmt.Sprintf("%d.%d.txt", now.Unix(), now.Nanosecond())
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, apperrors.IO(apperrors.CodeChangeFileCreateFail, err)
	}
	return &Entry{f: f, path: path}, nil
}

func (e *Entry) Path() string { return e.path }

// WriteAll appends one canonical line per pair. Callers pass the accepted
// subset already sorted ascending.
func (e *Entry) WriteAll(pairs []hashdb.Pair) error {
	bw := bufio.NewWriter(e.f)
	buf := make([]byte, 0, hashdb.LineLen)
	for _, p := range pairs {
		buf = p.AppendLine(buf[:0])
		if _, err := bw.Write(buf); err != nil {
			return apperrors.IO(apperrors.CodeChangeFileWriteFail, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return apperrors.IO(apperrors.CodeChangeFileWriteFail, err)
	}
	return nil
}

// Finalize closes the entry. The caller says whether any hash was accepted
// into the store: an entry for a request that accepted nothing is removed,
// while an entry for accepted hashes is kept even when writing it failed
// partway, so whatever made it to disk survives for the next merge. A
// failed removal is returned so the caller can log it, since the outcome
// of the request itself is already decided by then.
func (e *Entry) Finalize(kept bool) error {
	closeErr := e.f.Close()
	if kept {
		return closeErr
	}
	if err := os.Remove(e.path); err != nil {
		return apperrors.IO(apperrors.CodeChangeFileRemoveFail, err)
	}
	return closeErr
}

// Pending lists existing change files, oldest first. A missing directory
// means nothing is pending.
func Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, de.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Remove deletes one consumed change file.
func Remove(path string) error { return os.Remove(path) }
