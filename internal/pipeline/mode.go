package pipeline

import "strings"

type PerspectiveMode int

const (
	ModeDirect PerspectiveMode = iota
	ModeMirror
	ModeMutual
)

// ParseMode maps a request token to a mode. Unrecognised tokens fall back to
// ModeDirect.
func ParseMode(token string) PerspectiveMode {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "mirror":
		return ModeMirror
	case "mutual":
		return ModeMutual
	default:
		return ModeDirect
	}
}

func (m PerspectiveMode) String() string {
	switch m {
	case ModeMirror:
		return "mirror"
	case ModeMutual:
		return "mutual"
	default:
		return "direct"
	}
}

// Display is the human label shown next to a composite.
func (m PerspectiveMode) Display() string {
	switch m {
	case ModeMirror:
		return "Mirrored Reflection"
	case ModeMutual:
		return "Mutual Description"
	default:
		return "Direct Observation"
	}
}

// DefaultDescriptor is the signature context used when the caller gives none.
func (m PerspectiveMode) DefaultDescriptor() string {
	return "TENET_COMPOSITE_" + strings.ToUpper(m.String())
}
