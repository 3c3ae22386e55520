package scout

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/jace/internal/model"
)

var exportHeader = []string{
	"Name", "Code", "Category", "Status", "Confidence", "Authority", "Fee", "URL", "Description", "Notes", "Source Reasoning",
}

// ExportXLSX writes a review workbook for the given rule sets: a summary
// sheet with one row per rule set and one sheet of requirements per rule
// set, named by its jurisdiction key.
func ExportXLSX(path string, sets []model.RuleSet) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	addRow(summary, "ID", "Jurisdiction", "Type", "Requirements", "Avg Confidence", "Verified", "Active", "Model", "Researched", "Notes")

	for i := range sets {
		rs := &sets[i]
		addRow(summary,
			rs.ID, rs.JurisdictionKey, rs.JurisdictionType,
			strconv.Itoa(len(rs.Requirements)),
			strconv.FormatFloat(rs.AverageConfidence(), 'f', 2, 64),
			strconv.FormatBool(rs.IsVerified), strconv.FormatBool(rs.IsActive),
			rs.ModelUsed, rs.ResearchTimestamp.Format("2006-01-02 15:04"), rs.Notes,
		)

		sheet, err := f.AddSheet(sheetName(i, rs))
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet for %s", rs.JurisdictionKey)
		}
		addRow(sheet, exportHeader...)
		for _, r := range rs.Requirements {
			conf := ""
			if r.Confidence != nil {
				conf = strconv.FormatFloat(*r.Confidence, 'f', 2, 64)
			}
			addRow(sheet, r.Name, r.Code, string(r.Category), string(r.Status), conf,
				r.Authority, r.Fee, r.URL, r.Description, r.Notes, r.SourceReasoning)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// sheetName builds a unique sheet name within Excel's 31 character limit.
// Colons are not allowed in sheet names.
func sheetName(i int, rs *model.RuleSet) string {
	name := strconv.Itoa(i+1) + " "
	for _, r := range rs.JurisdictionKey {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			name += "-"
		default:
			name += string(r)
		}
	}
	if rs := []rune(name); len(rs) > 31 {
		name = string(rs[:31])
	}
	return name
}
