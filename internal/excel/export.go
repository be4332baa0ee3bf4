package excel

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/example/vocabulario/pkg/models"
)

// ExportSheet is the name of the sheet written by ExportXLSX
const ExportSheet = "Items"

var exportHeader = []interface{}{
	"id", "kind", "word", "translation", "article", "example", "example translation",
	"level", "in learning", "verb id", "tense", "person",
}

// ExportXLSX writes the collection as a workbook, one row per item
func ExportXLSX(w io.Writer, items []models.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	for i, item := range items {
		person := ""
		if item.Person > 0 {
			person = strconv.Itoa(item.Person)
		}
		row := []interface{}{
			item.ID,
			string(item.Kind),
			item.SourceText,
			item.TargetText,
			item.Article,
			item.ExampleSentence,
			item.ExampleTranslation,
			item.Level,
			item.InLearning,
			item.VerbID,
			string(item.Tense),
			person,
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cellName, &row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	_, err := f.WriteTo(w)
	return errors.Wrap(err, "failed to write workbook")
}
