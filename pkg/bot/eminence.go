package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Eminence is the totally-ordered permission level assigned to a user,
// scoped per bot/client/channel. A higher eminence satisfies every check a
// lower one would.
type Eminence int

const (
	EminenceNone Eminence = iota
	EminenceOperator
	EminenceMaster
	EminenceDeity
)

func (e Eminence) String() string {
	switch e {
	case EminenceNone:
		return "none"
	case EminenceOperator:
		return "operator"
	case EminenceMaster:
		return "master"
	case EminenceDeity:
		return "deity"
	}
	return fmt.Sprintf("eminence(%d)", int(e))
}

// ParseEminence accepts level names or their numeric encoding,
// case-insensitively. The empty string is EminenceNone.
func ParseEminence(s string) (Eminence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return EminenceNone, nil
	case "operator":
		return EminenceOperator, nil
	case "master":
		return EminenceMaster, nil
	case "deity":
		return EminenceDeity, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= int(EminenceNone) && n <= int(EminenceDeity) {
		return Eminence(n), nil
	}
	return EminenceNone, fmt.Errorf("unknown eminence %q", s)
}
