package hashdb

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	mmap "github.com/edsrzf/mmap-go"
)

// LoadStats describes what Load saw on disk.
type LoadStats struct {
	Bytes    int64
	Digest   uint64
	Resorted bool
}

// Load reads a hash file into a new Store. The file size divided by the
// line width gives the capacity hint; the file is mapped read-only and
// parsed in place. Any malformed line fails the whole load: a partially
// loaded store cannot be trusted.
func Load(path string) (*Store, LoadStats, error) {
	var stats LoadStats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, stats, err
	}
	stats.Bytes = fi.Size()
	if fi.Size() == 0 {
		return NewStore(0), stats, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to map %q: %w", path, err)
	}
	defer data.Unmap()

	stats.Digest = xxhash.Sum64(data)

	// ParseLines sizes its result from len(data)/LineLen, which is the
	// capacity hint for the whole store.
	pairs, err := ParseLines(data)
	if err != nil {
		return nil, stats, err
	}

	store := NewStore(0)
	stats.Resorted = store.setAll(pairs)
	return store, stats, nil
}

// ParseLines parses newline-separated canonical hash lines. Blank lines
// are skipped; a trailing carriage return is tolerated.
func ParseLines(data []byte) ([]Pair, error) {
	pairs := make([]Pair, 0, len(data)/LineLen)
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		p, err := ParseLine(string(line))
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
