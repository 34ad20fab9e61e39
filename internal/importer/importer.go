package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"souq-orders/internal/domain"
)

type WilayaWriter interface {
	Upsert(ctx context.Context, name string, fee decimal.Decimal) (*domain.Wilaya, error)
}

type rowReader interface {
	// Read returns io.EOF after the last row.
	Read() ([]string, error)
}

// Importer loads a delivery fee table (name, delivery_fee) and upserts every
// row by wilaya name.
type Importer struct {
	rows rowReader
	repo WilayaWriter
}

func NewCSVImporter(r io.Reader, repo WilayaWriter) *Importer {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &Importer{rows: csvr, repo: repo}
}

// NewXLSXImporter reads the first sheet of an Excel workbook.
func NewXLSXImporter(file *xlsx.File, repo WilayaWriter) (*Importer, error) {
	if len(file.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return &Importer{rows: &sheetReader{sheet: file.Sheets[0]}, repo: repo}, nil
}

// Run upserts each row and returns the number of wilayas written. Blank rows
// are skipped; a malformed row aborts the import.
func (i *Importer) Run(ctx context.Context) (int, error) {
	headers, err := i.rows.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	nameCol, ok := index["name"]
	if !ok {
		nameCol, ok = index["wilaya"]
	}
	feeCol, feeOK := index["delivery_fee"]
	if !ok || !feeOK {
		return 0, errors.New("headers must include name (or wilaya) and delivery_fee")
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		name, rawFee := pick(record, nameCol), pick(record, feeCol)
		if name == "" && rawFee == "" {
			continue
		}
		fee, err := parseFee(rawFee)
		if err != nil {
			return imported, fmt.Errorf("row %d (%q): %w", line, name, err)
		}
		if name == "" {
			return imported, fmt.Errorf("row %d: missing name", line)
		}

		if _, err := i.repo.Upsert(ctx, name, fee); err != nil {
			return imported, fmt.Errorf("upsert wilaya %q: %w", name, err)
		}
		imported++
	}
	return imported, nil
}

func parseFee(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid delivery_fee %q", raw)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative delivery_fee %s", raw)
	}
	return fee, nil
}

type sheetReader struct {
	sheet *xlsx.Sheet
	next  int
}

func (s *sheetReader) Read() ([]string, error) {
	if s.next >= len(s.sheet.Rows) {
		return nil, io.EOF
	}
	row := s.sheet.Rows[s.next]
	s.next++
	if row == nil {
		return nil, nil
	}
	record := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		record[i] = cell.String()
	}
	return record, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, pos int) string {
	if pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
