// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValidID checks that id is a UUID. Every entity and account in the
// workflow is keyed by one.
func IsValidID(id string) bool {
	return uuidRegex.MatchString(id)
}

// NormalizeID lowercases and trims an identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IDGenerator creates new entity identifiers.
type IDGenerator interface {
	NewID() string
}

// ═══════════════════════════════════════════════════════════════════════════
// Date Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsValid checks if the range is set and ordered.
func (r DateRange) IsValid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	if !r.IsValid() {
		return 0
	}
	return int(DateOf(r.End).Sub(DateOf(r.Start)).Hours()/24) + 1
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is an offset/limit window over a listing.
type PageRequest struct {
	Offset int
	Limit  int
}

// Normalize applies defaults and bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// DefaultPageRequest returns the first page with the default size.
func DefaultPageRequest() PageRequest {
	return PageRequest{Offset: 0, Limit: DefaultPageSize}
}

// Page is one window of a listing plus the metadata a caller needs to fetch
// the next one.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// NewPage assembles a page from a slice already cut to the request window.
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Offset:  req.Offset,
		Limit:   req.Limit,
		HasMore: req.Offset+len(items) < total,
	}
}

// Slice cuts an in-memory result set to the request window.
func Slice[T any](all []T, req PageRequest) []T {
	if req.Offset >= len(all) {
		return []T{}
	}
	end := req.Offset + req.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[req.Offset:end]
}

// MapPage converts the items of a page, keeping its metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, len(p.Items))
	for i, it := range p.Items {
		items[i] = fn(it)
	}
	return Page[U]{Items: items, Total: p.Total, Offset: p.Offset, Limit: p.Limit, HasMore: p.HasMore}
}
