package models

import (
	"strings"
	"time"
)

// TermStatus is the lifecycle state of an active glossary term.
type TermStatus int

const (
	StatusDraft     TermStatus = 0
	StatusPublished TermStatus = 1
	StatusArchived  TermStatus = 2
)

func (s TermStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPublished:
		return "published"
	case StatusArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// ParseTermStatus maps a list "tab" value to a status filter. Unrecognized
// values (including "all") mean no filter.
func ParseTermStatus(tab string) (TermStatus, bool) {
	switch strings.ToLower(tab) {
	case "draft":
		return StatusDraft, true
	case "published":
		return StatusPublished, true
	case "archived":
		return StatusArchived, true
	default:
		return 0, false
	}
}

// GlossaryTerm is the currently visible version of a glossary entry. At most
// one row exists per StableID; superseded content lives in
// ArchivedGlossaryTerm rows sharing the same StableID.
type GlossaryTerm struct {
	ID          string
	StableID    string
	Term        string
	Definition  string
	Version     int
	Status      TermStatus
	CreatedAt   time.Time
	CreatedByID *string
}

func (t *GlossaryTerm) Content() TermContent {
	return TermContent{Term: t.Term, Definition: t.Definition}
}

// ArchivedGlossaryTerm is an append-only snapshot of a superseded or
// intentionally archived term version. RestoredAt/RestoredByID mark
// provenance when a snapshot is used as a restore source.
type ArchivedGlossaryTerm struct {
	ID             string
	OriginalTermID string
	StableID       string
	Term           string
	Definition     string
	ArchivedAt     time.Time
	ArchivedByID   *string
	ChangeSummary  string
	CreatedByID    *string
	RestoredAt     *time.Time
	RestoredByID   *string
	Version        int
}

func (a *ArchivedGlossaryTerm) Content() TermContent {
	return TermContent{Term: a.Term, Definition: a.Definition}
}

// PublicTerm is a published entry as shown on the anonymous site.
type PublicTerm struct {
	ID         string
	Term       string
	Definition string
	CreatedAt  time.Time
}

// PublicTermDetail adds the creator's display name for the detail page.
type PublicTermDetail struct {
	ID            string
	Term          string
	Definition    string
	CreatedAt     time.Time
	CreatedByName string
}

// TermContent is the (term, definition) pair compared under trimming. All
// "identical version" decisions (update de-duplication, restore no-op, the
// can-restore flag) go through Equal so the comparison rule lives in one
// place.
type TermContent struct {
	Term       string
	Definition string
}

func (c TermContent) Equal(other TermContent) bool {
	return strings.TrimSpace(c.Term) == strings.TrimSpace(other.Term) &&
		strings.TrimSpace(c.Definition) == strings.TrimSpace(other.Definition)
}
