package analytics

import (
	"strconv"
	"strings"

	"github.com/hylla/gauge/internal/domain"
)

// Directory resolves person ids to display names. Name is total: it never fails.
type Directory struct {
	names   map[int64]string
	unknown string
	prefix  string
}

// NewDirectory builds a directory. The first non-blank name wins for duplicated ids.
func NewDirectory(employees []domain.Employee, unknownLabel, fallbackPrefix string) Directory {
	if strings.TrimSpace(unknownLabel) == "" {
		unknownLabel = DefaultUnknownLabel
	}
	if strings.TrimSpace(fallbackPrefix) == "" {
		fallbackPrefix = DefaultFallbackPrefix
	}
	names := make(map[int64]string, len(employees))
	for _, emp := range employees {
		name := strings.TrimSpace(emp.Name)
		if name == "" {
			continue
		}
		if _, ok := names[emp.ID]; ok {
			continue
		}
		names[emp.ID] = name
	}
	return Directory{names: names, unknown: unknownLabel, prefix: fallbackPrefix}
}

// Name returns the display name for an optional id.
func (d Directory) Name(id *int64) string {
	if id == nil {
		if d.unknown == "" {
			return DefaultUnknownLabel
		}
		return d.unknown
	}
	return d.NameOf(*id)
}

// Lookup returns the recorded name for id. It reports false for unknown ids and blank names.
func (d Directory) Lookup(id int64) (string, bool) {
	name, ok := d.names[id]
	return name, ok
}

// NameOf returns the display name for a known id, falling back to "<prefix><id>".
func (d Directory) NameOf(id int64) string {
	if name, ok := d.Lookup(id); ok {
		return name
	}
	prefix := d.prefix
	if prefix == "" {
		prefix = DefaultFallbackPrefix
	}
	return prefix + strconv.FormatInt(id, 10)
}
