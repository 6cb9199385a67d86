package cache

import (
	"fmt"
	"strings"
)

// PersistPolicy decides which writes persist the snapshot immediately.
type PersistPolicy int

const (
	// PersistOnFieldWrite persists after WriteField only. WriteNode and
	// WriteRootCall change memory and are carried by the next persist.
	PersistOnFieldWrite PersistPolicy = iota

	// PersistOnEveryWrite persists after every write operation.
	PersistOnEveryWrite

	// PersistManual never persists on its own; call Flush.
	PersistManual
)

// String returns the policy's config name.
func (p PersistPolicy) String() string {
	switch p {
	case PersistOnFieldWrite:
		return "field_write"
	case PersistOnEveryWrite:
		return "every_write"
	case PersistManual:
		return "manual"
	default:
		return fmt.Sprintf("PersistPolicy(%d)", int(p))
	}
}

// ParsePersistPolicy parses a config name. Empty means PersistOnFieldWrite.
func ParsePersistPolicy(s string) (PersistPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "field_write":
		return PersistOnFieldWrite, nil
	case "every_write":
		return PersistOnEveryWrite, nil
	case "manual":
		return PersistManual, nil
	default:
		return 0, fmt.Errorf("cache: unknown persist policy %q", s)
	}
}

// persists reports whether op should persist right away.
func (p PersistPolicy) persists(op string) bool {
	switch p {
	case PersistOnEveryWrite:
		return true
	case PersistManual:
		return false
	default:
		return op == OpWriteField
	}
}
