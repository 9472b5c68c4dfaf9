package hashdb

import (
	"fmt"
	"strconv"

	apperrors "duhashtsrv-golang/server/internal/pkg/errors"
)

const (
	// HexLen is the canonical text width of one hash: two zero-padded
	// 16-digit uppercase hex halves, high half first.
	HexLen = 32
	// LineLen includes the newline terminating each line in hash and
	// change files.
	LineLen = HexLen + 1
)

// Pair is one 128-bit hash split into two 64-bit halves. Ordering is
// lexicographic on (Hi, Lo).
type Pair struct {
	Hi uint64
	Lo uint64
}

func (p Pair) Compare(q Pair) int {
	switch {
	case p.Hi < q.Hi:
		return -1
	case p.Hi > q.Hi:
		return 1
	case p.Lo < q.Lo:
		return -1
	case p.Lo > q.Lo:
		return 1
	}
	return 0
}

func (p Pair) Less(q Pair) bool { return p.Compare(q) < 0 }

func (p Pair) String() string { return fmt.Sprintf("%016X%016X", p.Hi, p.Lo) }

// AppendLine appends the canonical rendering plus a newline to dst.
func (p Pair) AppendLine(dst []byte) []byte {
	return fmt.Appendf(dst, "%016X%016X\n", p.Hi, p.Lo)
}

// ParseLine parses one canonical 32-character hex line. Anything shorter,
// longer or non-hex is rejected.
func ParseLine(line string) (Pair, error) {
	if len(line) != HexLen {
		return Pair{}, apperrors.Format(apperrors.CodeInvalidHashFormat,
			fmt.Errorf("hash %q is not %d characters", line, HexLen))
	}
	hi, err := strconv.ParseUint(line[:16], 16, 64)
	if err != nil {
		return Pair{}, apperrors.Format(apperrors.CodeInvalidHashFormat,
			fmt.Errorf("failed to parse %q as pair uint64: %w", line, err))
	}
	lo, err := strconv.ParseUint(line[16:], 16, 64)
	if err != nil {
		return Pair{}, apperrors.Format(apperrors.CodeInvalidHashFormat,
			fmt.Errorf("failed to parse %q as pair uint64: %w", line, err))
	}
	return Pair{Hi: hi, Lo: lo}, nil
}
