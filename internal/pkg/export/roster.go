package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

// Format is a roster export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const rosterSheet = "Roster"

var rosterHeader = []string{"id", "name", "email"}

// ParseFormat accepts "csv" (the default when empty) and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", apperrors.NewValidationError("format", "format must be one of: csv xlsx")
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for a course roster.
func (f Format) Filename(courseID int64) string {
	return fmt.Sprintf("course-%d-roster.%s", courseID, f)
}

// WriteRoster writes the roster in format f.
func WriteRoster(w io.Writer, f Format, roster []models.RosterEntry) error {
	if f == FormatXLSX {
		return writeXLSX(w, roster)
	}
	return writeCSV(w, roster)
}

// csvCell stops spreadsheet apps from evaluating a user-supplied value as a
// formula when the CSV is opened.
func csvCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func writeCSV(w io.Writer, roster []models.RosterEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rosterHeader); err != nil {
		return err
	}
	for _, e := range roster {
		if err := cw.Write([]string{strconv.FormatInt(e.ID, 10), csvCell(e.Name), csvCell(e.Email)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, roster []models.RosterEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("failed to name roster sheet: %w", err)
	}

	for col, h := range rosterHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(rosterSheet, cell, h); err != nil {
			return err
		}
	}
	// string values are written as text cells, never as formulas
	for i, e := range roster {
		row := i + 2
		values := []interface{}{e.ID, e.Name, e.Email}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(rosterSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write roster workbook: %w", err)
	}
	return nil
}
