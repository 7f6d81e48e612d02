package models

import (
	"fmt"
	"strings"
	"time"
)

// AccessType tags how a version was accessed. Values are persisted as ints.
type AccessType int

const (
	AccessView     AccessType = 0
	AccessDownload AccessType = 1
	AccessAnalysis AccessType = 2
)

func (a AccessType) String() string {
	switch a {
	case AccessView:
		return "View"
	case AccessDownload:
		return "Download"
	case AccessAnalysis:
		return "Analysis"
	default:
		return fmt.Sprintf("AccessType(%d)", int(a))
	}
}

// Valid reports whether a is one of the known access types.
func (a AccessType) Valid() bool {
	return a >= AccessView && a <= AccessAnalysis
}

// ParseAccessType parses "View", "Download" or "Analysis", ignoring case.
func ParseAccessType(s string) (AccessType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view":
		return AccessView, nil
	case "download":
		return AccessDownload, nil
	case "analysis":
		return AccessAnalysis, nil
	default:
		return 0, fmt.Errorf("unknown access type %q", s)
	}
}

// EvidenceAccessLog records one access to one version. Append-only.
type EvidenceAccessLog struct {
	ID                int64
	EvidenceVersionID int64
	AccessedByUserID  string
	AccessType        AccessType
	AccessedAt        time.Time
}

// AuditLog is a row in the shared, system-wide audit sink.
type AuditLog struct {
	ID         int64
	UserID     string
	Action     string
	EntityName string
	EntityID   string
	Details    string
	Timestamp  time.Time
}
