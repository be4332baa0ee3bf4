package excel

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/example/vocabulario/pkg/models"
)

// ErrNoWordColumn is returned when the header has no word column
var ErrNoWordColumn = errors.New("no word column in header")

// Row is one word to import
type Row struct {
	Word string
	Kind models.Kind
}

var (
	wordHeaders  = []string{"word", "słowo"}
	classHeaders = []string{"class", "partofspeech", "część mowy", "type"}
)

// ParseFile reads a word list from a .csv or .xlsx file
func ParseFile(path string) ([]Row, error) {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open CSV file")
		}
		defer f.Close()
		return ParseCSV(f)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()
	return parseWorkbook(f)
}

// ParseCSV reads a word list with a header row. The word column is
// required; rows without a class are nouns.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV")
	}
	return parseRecords(records)
}

// ParseXLSX reads a word list from the first sheet of a workbook
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()
	return parseWorkbook(f)
}

func parseWorkbook(f *excelize.File) ([]Row, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "failed to get rows")
	}
	return parseRecords(rows)
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, nil
	}

	header := lo.Map(records[0], func(h string, _ int) string {
		return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	})
	wordIdx := column(header, wordHeaders)
	if wordIdx < 0 {
		return nil, ErrNoWordColumn
	}
	classIdx := column(header, classHeaders)

	var rows []Row
	for _, record := range records[1:] {
		word := strings.TrimSpace(cell(record, wordIdx))
		if word == "" {
			continue
		}
		rows = append(rows, Row{Word: word, Kind: parseClass(cell(record, classIdx))})
	}
	return rows, nil
}

func column(header, names []string) int {
	_, idx, _ := lo.FindIndexOf(header, func(h string) bool {
		return lo.Contains(names, h)
	})
	return idx
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// parseClass accepts only the kinds a user can add
func parseClass(s string) models.Kind {
	kind := models.Kind(strings.ToLower(strings.TrimSpace(s)))
	if lo.Contains(models.Kinds, kind) {
		return kind
	}
	return models.KindNoun
}
