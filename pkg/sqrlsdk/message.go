package sqrlsdk

import (
	"net/url"
)

// ProtocolVersion is bound into every signed message.
const ProtocolVersion = "1"

// Command names a signed client request.
type Command string

const (
	CmdIdent   Command = "ident"
	CmdDisable Command = "disable"
	CmdEnable  Command = "enable"
	CmdRemove  Command = "remove"
	CmdRekey   Command = "rekey"
)

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	switch c {
	case CmdIdent, CmdDisable, CmdEnable, CmdRemove, CmdRekey:
		return true
	}
	return false
}

// NeedsUnlock reports whether c must carry an unlock request signature.
func (c Command) NeedsUnlock() bool {
	return c == CmdEnable || c == CmdRemove || c == CmdRekey
}

// SignedMessage returns the canonical bytes signed by the IDK (and by the
// unlock key for URS). Keys are sorted, so both sides build identical bytes.
func SignedMessage(cmd Command, nut, path, idk string) []byte {
	v := url.Values{}
	v.Set("ver", ProtocolVersion)
	v.Set("cmd", string(cmd))
	v.Set("nut", nut)
	v.Set("path", path)
	v.Set("idk", idk)
	return []byte(v.Encode())
}
