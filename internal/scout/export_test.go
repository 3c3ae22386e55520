package scout

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/jace/internal/model"
)

func TestExportXLSX(t *testing.T) {
	conf := 0.8
	sets := []model.RuleSet{
		{
			ID:                "rs-1",
			JurisdictionKey:   "MT:Gallatin:Bozeman",
			JurisdictionType:  "city",
			ResearchTimestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Requirements: []model.Requirement{
				{Name: "Radon Disclosure", Category: model.CategoryDisclosure, Status: model.StatusRequired, Confidence: &conf},
				{Name: "Unscored", Category: model.CategoryForm, Status: model.StatusUnknown},
			},
		},
		{ID: "rs-2", JurisdictionKey: "Very Long State:Some Extremely Long County Name:City", Requirements: []model.Requirement{}},
	}
	path := filepath.Join(t.TempDir(), "review.xlsx")
	require.NoError(t, ExportXLSX(path, sets))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	summary := f.Sheets[0]
	assert.Equal(t, "Summary", summary.Name)
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, "rs-1", summary.Rows[1].Cells[0].String())
	assert.Equal(t, "2", summary.Rows[1].Cells[3].String())
	assert.Equal(t, "0.40", summary.Rows[1].Cells[4].String())

	detail := f.Sheets[1]
	assert.Equal(t, "1 MT-Gallatin-Bozeman", detail.Name)
	require.Len(t, detail.Rows, 3)
	assert.Equal(t, "Name", detail.Rows[0].Cells[0].String())
	assert.Equal(t, "0.80", detail.Rows[1].Cells[4].String())
	assert.Equal(t, "Unscored", detail.Rows[2].Cells[0].String())

	assert.LessOrEqual(t, len([]rune(f.Sheets[2].Name)), 31)
}
