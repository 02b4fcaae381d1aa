package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

func TestValidateCatalogAcceptsMinimalRecords(t *testing.T) {
	assert.NoError(t, ValidateCatalog(nil))
	assert.NoError(t, ValidateCatalog([]catalog.Record{{ID: "1"}, {ID: "2", Title: "t"}}))
}

func TestValidateCatalogReportsEveryProblem(t *testing.T) {
	err := ValidateCatalog([]catalog.Record{
		{ID: "a"},
		{ID: "  "},
		{ID: "a"},
		{ID: strings.Repeat("x", maxIDLength+1)},
		{ID: "b", Title: strings.Repeat("t", maxTitleLength+1)},
		{ID: "c", Tags: []string{"ok", strings.Repeat("g", maxTagLength+1)}},
		{ID: "d", Tags: make([]string, maxTags+1)},
	})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "id is required", verr.Fields["records[1].id"])
	assert.Contains(t, verr.Fields["records[2].id"], "records[0]")
	assert.Contains(t, verr.Fields, "records[3].id")
	assert.Contains(t, verr.Fields, "records[4].title")
	assert.Contains(t, verr.Fields, "records[5].tags[1]")
	assert.Contains(t, verr.Fields, "records[6].tags")
	assert.Len(t, verr.Fields, 6)
}

func TestValidationErrorIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "a:one; b:two", err.Error())
}
