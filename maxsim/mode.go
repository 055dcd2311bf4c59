package maxsim

import (
	"strings"

	"github.com/viant/multivec/errs"
)

// Mode selects a ranking strategy.
type Mode string

const (
	// ModeInMemory scores decoded documents in process.
	ModeInMemory Mode = "inmemory"
	// ModeDelegated asks a backend for every per-token maximum.
	ModeDelegated Mode = "delegated"
)

var modeAliases = map[string]Mode{
	"inmemory":  ModeInMemory,
	"in-memory": ModeInMemory,
	"memory":    ModeInMemory,
	"bynumpy":   ModeInMemory,
	"delegated": ModeDelegated,
	"backend":   ModeDelegated,
	"db":        ModeDelegated,
	"bydb":      ModeDelegated,
}

// ParseMode resolves a mode name case-insensitively. ByNumpy and ByDB are
// accepted for inmemory and delegated.
func ParseMode(name string) (Mode, error) {
	if m, ok := modeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m, nil
	}
	return "", errs.InvalidArgument("maxsim: mode", "unrecognized mode %q, want inmemory or delegated", name)
}

func (m Mode) String() string { return string(m) }
