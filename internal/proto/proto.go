// Package proto implements the binary request/response protocol and the
// per-connection session loop.
//
// One request per round trip:
//
//	+---------+---------+-----------------+-------------------------------+
//	| Version | Command |     Length      |            Hashes             |
//	+---------+---------+-----------------+-------------------------------+
//	| 1 byte  | 1 byte  | 2 bytes (u16be) | Length * (u64be, u64be) bytes |
//	+---------+---------+-----------------+-------------------------------+
//
// Responses are a single status byte followed by command-specific data; on
// failure the remaining bytes are the error text and the connection is
// closed.
package proto

// Version is the protocol version byte. Only V1 is defined; every other
// byte maps to VersionUnknown.
type Version byte

const (
	V1             Version = '1'
	VersionUnknown Version = 0
)

func VersionFrom(b byte) Version {
	if Version(b) == V1 {
		return V1
	}
	return VersionUnknown
}

// Command selects the operation for one request.
type Command byte

const (
	CmdQuery   Command = 'q'
	CmdUpdate  Command = 'u'
	CmdEnd     Command = 'e'
	CmdUnknown Command = 0
)

func CommandFrom(b byte) Command {
	switch Command(b) {
	case CmdQuery, CmdUpdate, CmdEnd:
		return Command(b)
	}
	return CmdUnknown
}

// Status is the first byte of every response.
type Status byte

const (
	StatusSuccess Status = 's'
	StatusError   Status = 'e'
)
