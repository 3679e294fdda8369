// Package excel reads import sheets and writes export workbooks.
package excel

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stokapp/stok/internal/domain/cases"
	"github.com/stokapp/stok/internal/domain/checklist"
	"github.com/stokapp/stok/internal/domain/history"
	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/importer"
)

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
)

// ReadTable loads the first sheet: row one is the header, blank rows are skipped.
func ReadTable(r io.Reader) (importer.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return importer.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return importer.Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return importer.Table{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return importer.Table{}, nil
	}
	t := importer.Table{Header: rows[0]}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Data is everything the all-in-one export holds.
type Data struct {
	Materials []materials.Material
	Cases     []cases.Record
	History   []history.Entry
	Checklist []checklist.Entry
}

func WriteMaterials(w io.Writer, ms []materials.Material) error {
	return write(w, func(f *excelize.File) error { return materialsSheet(f, "Materials", ms) })
}

func WriteCases(w io.Writer, cs []cases.Record) error {
	return write(w, func(f *excelize.File) error { return casesSheet(f, "Cases", cs) })
}

func WriteHistory(w io.Writer, hs []history.Entry) error {
	return write(w, func(f *excelize.File) error { return historySheet(f, "History", hs) })
}

func WriteChecklist(w io.Writer, es []checklist.Entry) error {
	return write(w, func(f *excelize.File) error { return checklistSheet(f, "Checklist", es) })
}

// WriteAll writes Materials, Cases, History and Checklist sheets into one workbook.
func WriteAll(w io.Writer, d Data) error {
	return write(w, func(f *excelize.File) error {
		if err := materialsSheet(f, "Materials", d.Materials); err != nil {
			return err
		}
		if err := casesSheet(f, "Cases", d.Cases); err != nil {
			return err
		}
		if err := historySheet(f, "History", d.History); err != nil {
			return err
		}
		return checklistSheet(f, "Checklist", d.Checklist)
	})
}

func write(w io.Writer, fill func(f *excelize.File) error) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := fill(f); err != nil {
		return err
	}
	return f.Write(w)
}

// sheet renames the default sheet on first use and adds new ones after.
func sheet(f *excelize.File, name string) error {
	if list := f.GetSheetList(); len(list) == 1 && list[0] == "Sheet1" {
		return f.SetSheetName("Sheet1", name)
	}
	_, err := f.NewSheet(name)
	return err
}

func writeRows(f *excelize.File, name string, header []any, rows [][]any) error {
	if err := sheet(f, name); err != nil {
		return err
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", name, err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", name, i+2, err)
		}
	}
	return nil
}

func materialsSheet(f *excelize.File, name string, ms []materials.Material) error {
	rows := make([][]any, 0, len(ms))
	for _, m := range ms {
		rows = append(rows, []any{m.Name, m.Code, m.Serial, m.Lot, formatDate(m.ExpiryDate), m.Quantity, m.OwnerUser})
	}
	return writeRows(f, name, []any{"Name", "Code", "Serial", "Lot", "Expiry", "Quantity", "Owner"}, rows)
}

func casesSheet(f *excelize.File, name string, cs []cases.Record) error {
	rows := make([][]any, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []any{c.Hospital, c.Doctor, c.Patient, c.Note, c.CreatedAt.Local().Format(dateTimeLayout), c.CreatedBy, FormatUsed(c.UsedMaterials)})
	}
	return writeRows(f, name, []any{"Hospital", "Doctor", "Patient", "Note", "CreatedAt", "CreatedBy", "UsedMaterials"}, rows)
}

func historySheet(f *excelize.File, name string, hs []history.Entry) error {
	rows := make([][]any, 0, len(hs))
	for _, h := range hs {
		rows = append(rows, []any{string(h.Kind), h.Summary, h.CreatedAt.Local().Format(dateTimeLayout), h.CreatedBy, FormatUsed(h.Details)})
	}
	return writeRows(f, name, []any{"Type", "Summary", "CreatedAt", "CreatedBy", "Details"}, rows)
}

func checklistSheet(f *excelize.File, name string, es []checklist.Entry) error {
	rows := make([][]any, 0, len(es))
	for _, e := range es {
		rows = append(rows, []any{e.OrderNo, e.Patient, e.Hospital, e.Phone, e.TimeDisplay(), string(e.Status)})
	}
	return writeRows(f, name, []any{"Order", "Patient", "Hospital", "Phone", "Time", "Status"}, rows)
}

// FormatUsed renders one "Name (serialOrLot) SKT:dd.MM.yyyy Qty:N" line per material.
func FormatUsed(lines []materials.Used) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		var b strings.Builder
		b.WriteString(l.Name)
		if l.SerialOrLot != "" {
			fmt.Fprintf(&b, " (%s)", l.SerialOrLot)
		}
		if l.ExpiryDate != nil {
			b.WriteString(" SKT:" + l.ExpiryDate.Format(dateLayout))
		}
		fmt.Fprintf(&b, " Qty:%d", l.Quantity)
		out = append(out, b.String())
	}
	return strings.Join(out, "\n")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
