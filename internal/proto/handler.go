package proto

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"slices"
	"time"

	"duhashtsrv-golang/server/internal/hashdb"
	"duhashtsrv-golang/server/internal/journal"
	"duhashtsrv-golang/server/internal/logger"
	apperrors "duhashtsrv-golang/server/internal/pkg/errors"
	"duhashtsrv-golang/server/internal/pkg/id"
)

// Handler serves the protocol on one accepted connection. All handlers
// share one hashdb.Shared; nothing else is shared between connections.
type Handler struct {
	db     *hashdb.Shared
	jdir   string
	connID string
}

func NewHandler(db *hashdb.Shared, journalDir string) *Handler {
	return &Handler{db: db, jdir: journalDir, connID: id.ConnID()}
}

// Serve runs the session loop until the client sends the end command, the
// connection drops, or a request fails. A failed request is answered with
// an error status plus the stable error text before the connection is
// closed; a failure while writing that answer is only logged. A panic in
// a request never takes the process down.
func (h *Handler) Serve(conn net.Conn) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("[%s] panic in connection handler: %v", h.connID, v)
		}
		if err := conn.Close(); err != nil {
			logger.Error("[%s] failed to close connection: %v", h.connID, err)
		}
	}()

	if err := h.serve(conn); err != nil {
		h.writeError(conn, err)
	}
}

func (h *Handler) serve(conn net.Conn) error {
	r := bufio.NewReader(conn)
	for {
		vb, err := r.ReadByte()
		if err != nil {
			vb = 0
		}
		if VersionFrom(vb) != V1 {
			logger.Error("[%s] received invalid protocol version", h.connID)
			return apperrors.Protocol(apperrors.CodeInvalidProtoVersion)
		}

		cb, err := r.ReadByte()
		if err != nil {
			cb = 0
		}
		switch CommandFrom(cb) {
		case CmdQuery:
			if err := h.handleQuery(r, conn); err != nil {
				return err
			}
		case CmdUpdate:
			if err := h.handleUpdate(r, conn); err != nil {
				return err
			}
		case CmdEnd:
			logger.Debug("[%s] session ended by client", h.connID)
			return nil
		default:
			logger.Error("[%s] received invalid protocol command", h.connID)
			return apperrors.Protocol(apperrors.CodeInvalidCommand)
		}
	}
}

// handleQuery answers with one presence byte per input hash, in input
// order. The store lock is held across the whole batch so the answers form
// a single snapshot.
func (h *Handler) handleQuery(r *bufio.Reader, conn net.Conn) error {
	count, err := readUint16(r)
	if err != nil {
		logger.Error("[%s] failed to receive length", h.connID)
		return apperrors.Protocol(apperrors.CodeInvalidLength)
	}

	logger.Info("[%s] received a query with %d hashes", h.connID, count)
	start := time.Now()

	results := make([]byte, 0, count)

	store := h.db.Acquire()
	for i := 0; i < int(count); i++ {
		p, err := readPair(r)
		if err != nil {
			h.db.Release()
			return apperrors.Protocol(apperrors.CodeReadFail)
		}
		if store.Contains(p) {
			results = append(results, 1)
		} else {
			results = append(results, 0)
		}
	}
	h.db.Release()

	logger.Info("[%s] query served in %s", h.connID, time.Since(start))

	if err := writeStatus(conn, StatusSuccess); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	_, err = conn.Write(results)
	return err
}

// handleUpdate inserts each hash that is not already present, journals the
// accepted subset in ascending order, and answers with the accepted count.
// The store lock is held across the whole batch so no query or other
// update observes a half-applied batch. The journal entry is opened before
// any hash is read and finalized on every path, including mid-batch
// failures.
func (h *Handler) handleUpdate(r *bufio.Reader, conn net.Conn) error {
	count, err := readUint16(r)
	if err != nil {
		logger.Error("[%s] failed to receive length", h.connID)
		return apperrors.Protocol(apperrors.CodeInvalidLength)
	}

	logger.Info("[%s] received an update with %d hashes", h.connID, count)

	entry, err := journal.Begin(h.jdir)
	if err != nil {
		logger.Error("[%s] failed to open change file: %v", h.connID, err)
		return err
	}

	start := time.Now()

	var added []hashdb.Pair
	var readErr error

	store := h.db.Acquire()
	for i := 0; i < int(count); i++ {
		p, err := readPair(r)
		if err != nil {
			readErr = apperrors.Protocol(apperrors.CodeReadFail)
			break
		}
		if store.Insert(p) {
			added = append(added, p)
		}
	}
	h.db.Release()

	// Change files are written in ascending hash order regardless of
	// arrival order; the accepted-so-far subset is persisted even when the
	// batch died partway, because those hashes are already in the store.
	slices.SortFunc(added, hashdb.Pair.Compare)

	var writeErr error
	if len(added) > 0 {
		writeErr = entry.WriteAll(added)
	}
	if err := entry.Finalize(len(added) > 0); err != nil {
		logger.Error("[%s] failed to finalize change file %q: %v", h.connID, entry.Path(), err)
	}

	if readErr != nil {
		logger.Error("[%s] failed to read update batch", h.connID)
		return readErr
	}
	if writeErr != nil {
		logger.Error("[%s] failed to write change file %q", h.connID, entry.Path())
		return writeErr
	}

	logger.Info("[%s] inserted %d/%d hashes in %s", h.connID, len(added), count, time.Since(start))
	if len(added) > 0 {
		logger.Debug("[%s] wrote change to %q", h.connID, entry.Path())
	} else {
		logger.Debug("[%s] no new hashes, change file not kept", h.connID)
	}

	if err := writeStatus(conn, StatusSuccess); err != nil {
		return err
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(len(added)))
	_, err = conn.Write(buf[:])
	return err
}

func (h *Handler) writeError(conn net.Conn, err error) {
	if werr := writeStatus(conn, StatusError); werr != nil {
		logger.Error("[%s] failed to write error to client: %v", h.connID, werr)
		return
	}
	if _, werr := conn.Write([]byte(err.Error())); werr != nil {
		logger.Error("[%s] failed to write error to client: %v", h.connID, werr)
	}
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readPair(r io.Reader) (hashdb.Pair, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return hashdb.Pair{}, err
	}
	return hashdb.Pair{
		Hi: binary.BigEndian.Uint64(buf[:8]),
		Lo: binary.BigEndian.Uint64(buf[8:]),
	}, nil
}

func writeStatus(w io.Writer, s Status) error {
	_, err := w.Write([]byte{byte(s)})
	return err
}
