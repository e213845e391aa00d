// Package export writes dashboard incident views to XLSX and CSV files.
package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/innoventors/incident-cli/internal/model"
)

// header is the column order shared by both formats.
var header = []string{
	"Case", "File", "Uploaded At", "Root Cause", "Summary",
	"Recommendation", "Category", "Severity",
}

func viewRow(v model.IncidentView) []string {
	return []string{
		v.CaseName,
		v.File,
		v.UploadedAt.Format("2006-01-02 15:04:05"),
		v.RootCause,
		v.Summary,
		v.Recommendation,
		v.Category,
		string(v.Severity),
	}
}

// WriteXLSX writes incident views to an XLSX workbook at path.
func WriteXLSX(path string, views []model.IncidentView) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Incidents")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().Value = h
	}

	for _, v := range views {
		row := sheet.AddRow()
		for _, cell := range viewRow(v) {
			row.AddCell().Value = cell
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// WriteCSV writes incident views as CSV to w.
func WriteCSV(w io.Writer, views []model.IncidentView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, v := range views {
		if err := cw.Write(viewRow(v)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteCSVFile writes incident views as CSV to the file at path.
func WriteCSVFile(path string, views []model.IncidentView) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := WriteCSV(f, views); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
