package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPages_SkipsBlankPages(t *testing.T) {
	doc := FromPages(3, []string{"  Cover page \n", "\n\t", "Financials"})

	assert.True(t, doc.Success)
	assert.Equal(t, 3, doc.TotalPages)
	assert.Equal(t, []Page{{Number: 1, Text: "Cover page"}, {Number: 3, Text: "Financials"}}, doc.Pages)
	assert.Equal(t, "--- Page 1 ---\nCover page\n\n--- Page 3 ---\nFinancials", doc.FullText)
	assert.Empty(t, doc.Error)
}

func TestFromPages_AllBlank(t *testing.T) {
	doc := FromPages(1, []string{""})
	assert.True(t, doc.Success)
	assert.Empty(t, doc.FullText)
	assert.Empty(t, doc.Pages)
}

func TestFailed(t *testing.T) {
	doc := Failed(errors.New("boom"))
	assert.False(t, doc.Success)
	assert.Empty(t, doc.FullText)
	assert.Equal(t, "boom", doc.Error)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n%")))
	assert.False(t, IsPDF([]byte("PK\x03\x04")))
	assert.False(t, IsPDF(nil))
}
