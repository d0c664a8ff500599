package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare id", "1AbC_d-EfG", "1AbC_d-EfG", false},
		{"full url", "https://docs.google.com/spreadsheets/d/1AbC_d-EfG/edit#gid=0", "1AbC_d-EfG", false},
		{"url without fragment", "https://docs.google.com/spreadsheets/d/xyz123", "xyz123", false},
		{"surrounding whitespace", "  abc  ", "abc", false},
		{"empty", "", "", true},
		{"unrelated url", "https://example.com/some/path", "", true},
		{"contains space", "not an id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDocumentRef(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuarterlySheetValidate(t *testing.T) {
	valid := QuarterlySheet{
		Year:       2025,
		Quarter:    1,
		Group:      GroupSales,
		DocumentID: "doc",
		TabName:    "tab",
		SyncStatus: SyncActive,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*QuarterlySheet)
	}{
		{"year too low", func(s *QuarterlySheet) { s.Year = 1999 }},
		{"quarter zero", func(s *QuarterlySheet) { s.Quarter = 0 }},
		{"quarter five", func(s *QuarterlySheet) { s.Quarter = 5 }},
		{"bad group", func(s *QuarterlySheet) { s.Group = "finance" }},
		{"missing document", func(s *QuarterlySheet) { s.DocumentID = "" }},
		{"missing tab", func(s *QuarterlySheet) { s.TabName = "" }},
		{"bad status", func(s *QuarterlySheet) { s.SyncStatus = "stopped" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := valid
			tt.mutate(&sheet)
			assert.Error(t, sheet.Validate())
		})
	}
}

func TestNewWebhookToken(t *testing.T) {
	a := NewWebhookToken()
	b := NewWebhookToken()

	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}
