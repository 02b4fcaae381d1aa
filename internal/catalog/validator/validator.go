// Package validator checks catalogs pushed to the service before they are
// indexed. Missing optional fields are fine; what is rejected would break
// the index invariants (every record needs a unique ID) or is oversized.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

const (
	maxIDLength          = 255
	maxTitleLength       = 1024
	maxDescriptionLength = 65536
	maxTags              = 256
	maxTagLength         = 128
)

// ValidationError holds per-field validation failure messages, keyed by a
// path such as "records[3].id".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateCatalog checks every record and returns a ValidationError listing
// all problems found.
func ValidateCatalog(records []catalog.Record) error {
	errs := make(map[string]string)
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		path := fmt.Sprintf("records[%d]", i)
		id := strings.TrimSpace(rec.ID)
		switch {
		case id == "":
			errs[path+".id"] = "id is required"
		case len(rec.ID) > maxIDLength:
			errs[path+".id"] = fmt.Sprintf("id must be at most %d characters", maxIDLength)
		default:
			if first, dup := seen[rec.ID]; dup {
				errs[path+".id"] = fmt.Sprintf("duplicate id, first used by records[%d]", first)
			} else {
				seen[rec.ID] = i
			}
		}
		if len(rec.Title) > maxTitleLength {
			errs[path+".title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
		}
		if len(rec.Description) > maxDescriptionLength {
			errs[path+".description"] = fmt.Sprintf("description must be at most %d characters", maxDescriptionLength)
		}
		if len(rec.Tags) > maxTags {
			errs[path+".tags"] = fmt.Sprintf("at most %d tags are allowed", maxTags)
		}
		for j, tag := range rec.Tags {
			if len(tag) > maxTagLength {
				errs[fmt.Sprintf("%s.tags[%d]", path, j)] = fmt.Sprintf("tag must be at most %d characters", maxTagLength)
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
