package domain

import (
	"fmt"
	"strings"
	"time"
)

// Recipient is a customer contact supplied by the collaborator store.
// This core never mutates it.
type Recipient struct {
	Phone        string
	Name         string
	OptIn        bool
	Role         string
	LastActiveAt time.Time
}

// Segment is a named predicate selecting a bounded recipient subset.
type Segment string

const (
	SegmentVIP    Segment = "vip"
	SegmentRecent Segment = "recent"
	SegmentAll    Segment = "all"
)

func (s Segment) String() string { return string(s) }

func (s Segment) IsValid() bool {
	switch s {
	case SegmentVIP, SegmentRecent, SegmentAll:
		return true
	}
	return false
}

func ParseSegmentFromString(s string) (Segment, error) {
	seg := Segment(strings.ToLower(strings.TrimSpace(s)))
	if !seg.IsValid() {
		return "", fmt.Errorf("%w: invalid segment %q", ErrValidation, s)
	}
	return seg, nil
}

// RecentWindow is the trailing activity window for the recent segment.
const RecentWindow = 30 * 24 * time.Hour

// DefaultSegmentCap bounds how many recipients a segment may resolve,
// regardless of true population size. A safety limit, not pagination.
const DefaultSegmentCap = 500
