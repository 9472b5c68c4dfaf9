// Package server drives the process lifecycle: validate configuration,
// load or merge the hash file, optionally run the one-shot probe, then
// accept connections until shutdown.
package server

import (
	"context"
	"net"
	"time"

	"duhashtsrv-golang/server/internal/config"
	"duhashtsrv-golang/server/internal/hashdb"
	"duhashtsrv-golang/server/internal/journal"
	"duhashtsrv-golang/server/internal/logger"
	"duhashtsrv-golang/server/internal/proto"
)

const Version = "0.1.0"

type Server struct {
	cfg    *config.Config
	jdir   string
	shared *hashdb.Shared
}

func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg, jdir: journal.DefaultDir}
}

// Run returns once the listener shuts down, the probe finishes, or a
// startup step fails. Startup failures happen before the listener opens:
// a store that failed to load is never served.
func (s *Server) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	s.warnUnmergedChanges()

	var store *hashdb.Store
	var err error
	if s.cfg.Merge {
		store, err = s.merge()
	} else {
		store, err = s.load()
	}
	if err != nil {
		return err
	}
	s.shared = hashdb.NewShared(store)

	if s.cfg.Test != "" {
		return s.probe(store)
	}

	return s.listen(ctx)
}

// warnUnmergedChanges flags pending change files that a plain start would
// silently ignore.
func (s *Server) warnUnmergedChanges() {
	if s.cfg.Merge {
		return
	}
	pending, err := journal.Pending(s.jdir)
	if err != nil || len(pending) == 0 {
		return
	}
	logger.Warn("found change files in %q", s.jdir)
	logger.Warn("contents will not be used")
	logger.Warn(`use the "--merge" parameter to merge them into the database`)
	logger.Warn(`note that "--merge" will update the on-disk hash file`)
}

func (s *Server) load() (*hashdb.Store, error) {
	logger.Info("initializing duhashtsrv version %s", Version)
	start := time.Now()

	store, stats, err := hashdb.Load(s.cfg.HashFile)
	if err != nil {
		return nil, err
	}

	logger.Info("got ingest size: %d bytes", stats.Bytes)
	logger.Info("calculated total: %d hashes", stats.Bytes/hashdb.LineLen)
	logger.Debug("hash file digest: %016x", stats.Digest)
	if stats.Resorted {
		logger.Warn("hash file %q was not sorted ascending; store was re-sorted in memory", s.cfg.HashFile)
		logger.Warn("lookups are correct, but consider sorting the file on disk")
	}
	logger.Info("finished ingesting %d hashes in %s", store.Len(), time.Since(start))
	return store, nil
}

// probe runs the single fixed-format lookup requested by --test against
// the freshly loaded store, without touching the network.
func (s *Server) probe(store *hashdb.Store) error {
	logger.Info("running test with hash %q", s.cfg.Test)
	start := time.Now()

	p, err := hashdb.ParseLine(s.cfg.Test)
	if err != nil {
		return err
	}

	if pos, ok := store.IndexOf(p); ok {
		logger.Info("test hash found at position %d", pos+1)
	} else {
		logger.Info("test hash not found")
	}

	logger.Info("finished test search in %s", time.Since(start))
	return nil
}

func (s *Server) listen(ctx context.Context) error {
	addr := s.cfg.Addr()
	logger.Info("starting server on %q", addr)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("listener closed, shutting down")
				return nil
			}
			return err
		}

		logger.Info("received connection from %s", conn.RemoteAddr())
		h := proto.NewHandler(s.shared, s.jdir)
		go h.Serve(conn)
	}
}
