package server

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"duhashtsrv-golang/server/internal/hashdb"
	"duhashtsrv-golang/server/internal/journal"
	"duhashtsrv-golang/server/internal/logger"
)

// merge folds every pending change file into the hash file: back the file
// up, parse the change files, load the current database, insert what is
// new, rewrite the hash file when anything changed, then drop the change
// files. With nothing pending it is a plain load.
func (s *Server) merge() (*hashdb.Store, error) {
	paths, err := journal.Pending(s.jdir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		logger.Info("merge specified but no change files found")
		return s.load()
	}

	logger.Info("initializing duhashtsrv version %s with merge", Version)
	start := time.Now()

	logger.Info("creating backup of the existing %q hash file", s.cfg.HashFile)
	if err := s.backupHashFile(); err != nil {
		return nil, err
	}

	logger.Info("parsing %d change files", len(paths))
	pending, err := parseChangeFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Info("got a total of %d pending hashes", len(pending))

	logger.Info("parsing the existing hash database")
	store, err := s.load()
	if err != nil {
		return nil, err
	}

	logger.Info("inserting new hashes within the database")
	added := len(store.BulkInsert(pending))
	logger.Info("total new hashes added: %d", added)

	if added > 0 {
		logger.Info("attempting to write changes to disk")
		if err := rewriteHashFile(s.cfg.HashFile, store); err != nil {
			logger.Error("failed to write changes to hash file")
			return nil, err
		}
	} else {
		logger.Info("no new hashes added, nothing to write to disk")
	}

	logger.Info("cleaning up change files")
	for _, path := range paths {
		if err := journal.Remove(path); err != nil {
			logger.Error("failed to remove change file %q: %v", path, err)
			continue
		}
		logger.Info("removed change file %q", path)
	}

	logger.Info("finished merging hashes in %s", time.Since(start))
	return store, nil
}

// parseChangeFiles reads every pending change file concurrently. Arrival
// order across files is not significant, so results are just concatenated
// in path order.
func parseChangeFiles(paths []string) ([]hashdb.Pair, error) {
	results := make([][]hashdb.Pair, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			logger.Info("parsing change file %q", path)
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			pairs, err := hashdb.ParseLines(data)
			if err != nil {
				return fmt.Errorf("change file %q: %w", path, err)
			}
			results[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pending []hashdb.Pair
	for _, pairs := range results {
		pending = append(pending, pairs...)
	}
	return pending, nil
}

// backupHashFile copies the hash file to <file>.bak and verifies the copy
// by digest before the merge is allowed to rewrite anything.
func (s *Server) backupHashFile() error {
	src := s.cfg.HashFile
	dst := src + ".bak"
	logger.Info("backing up hash file to %q", dst)

	srcSum, err := copyFile(src, dst)
	if err != nil {
		return fmt.Errorf("failed to backup hash file: %w", err)
	}
	dstSum, err := fileDigest(dst)
	if err != nil {
		return fmt.Errorf("failed to verify backup: %w", err)
	}
	if srcSum != dstSum {
		return fmt.Errorf("backup %q digest mismatch: %016x != %016x", dst, dstSum, srcSum)
	}

	logger.Debug("backup digest: %016x", dstSum)
	return nil
}

// copyFile copies src to dst and returns the xxhash digest of the bytes
// read from src.
func copyFile(src, dst string) (uint64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	digest := xxhash.New()
	if _, err := io.Copy(out, io.TeeReader(in, digest)); err != nil {
		_ = out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	return digest.Sum64(), nil
}

func fileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return 0, err
	}
	return digest.Sum64(), nil
}

// rewriteHashFile overwrites the hash file with the store's full
// ascending-order dump. The store only ever grows, so a truncating
// rewrite is safe; the .bak copy covers a crash mid-write.
func rewriteHashFile(path string, store *hashdb.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
