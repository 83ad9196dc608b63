package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// exportHeader is the column layout shared by CSV and XLSX exports, matching
// the import format so exports can be re-imported.
var exportHeader = []string{
	"booking_date", "valuta_date", "kind", "amount", "tax",
	"account", "category", "contact", "security", "note",
}

// ExportService renders a user's postings as CSV or XLSX.
type ExportService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewExportService(repo *storage.Repository, logger *log.Logger) *ExportService {
	return &ExportService{repo: repo, logger: logger.WithComponent(log.ComponentExport)}
}

func (s *ExportService) rows(ctx context.Context, userID int64, f storage.PostingFilter) ([][]string, error) {
	postings, err := s.repo.ListPostings(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	names := namesLookup{}
	if err := names.load(ctx, s.repo, userID); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(postings))
	for _, p := range postings {
		tax := ""
		if !p.TaxAmount.IsZero() {
			tax = p.TaxAmount.String()
		}
		rows = append(rows, []string{
			p.BookingDate.String(),
			p.ValutaDate.String(),
			string(p.Kind),
			p.Amount.String(),
			tax,
			names.accounts[p.AccountID],
			optionalName(names.categories, p.CategoryID),
			optionalName(names.contacts, p.ContactID),
			optionalName(names.securities, p.SecurityID),
			p.Note,
		})
	}
	return rows, nil
}

func optionalName(names map[int64]string, id int64) string {
	if id == 0 {
		return ""
	}
	return names[id]
}

// WriteCSV streams the filtered postings as CSV, header first.
func (s *ExportService) WriteCSV(ctx context.Context, userID int64, f storage.PostingFilter, w io.Writer) error {
	rows, err := s.rows(ctx, userID, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	s.logger.InfoContext(ctx, "csv export written",
		log.FieldUserID, userID, "rows", len(rows))
	return nil
}

// WriteReportCSV flattens a hierarchical report into CSV: one row per entity
// leaf with its kind, category and per-bucket amounts, followed by a grand
// total row.
func (s *ExportService) WriteReportCSV(ctx context.Context, report core.Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"kind", "category", "entity", "total"}
	header = append(header, report.BucketLabels...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	writeLine := func(kind, category, entity string, line core.ReportLine) error {
		row := []string{kind, category, entity, line.Total.String()}
		for _, cell := range line.PerBucket {
			row = append(row, cell.String())
		}
		return cw.Write(row)
	}

	rows := 0
	for _, t := range report.Types {
		for _, c := range t.Categories {
			for _, e := range c.Entities {
				if err := writeLine(string(t.Kind), c.Name, e.Name, e.Line); err != nil {
					return fmt.Errorf("write csv row: %w", err)
				}
				rows++
			}
		}
	}
	if err := writeLine("total", "", "", report.Total); err != nil {
		return fmt.Errorf("write csv total: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	s.logger.InfoContext(ctx, "report export written", "rows", rows)
	return nil
}

// WriteXLSX writes the filtered postings as a single-sheet workbook.
func (s *ExportService) WriteXLSX(ctx context.Context, userID int64, f storage.PostingFilter, w io.Writer) error {
	rows, err := s.rows(ctx, userID, f)
	if err != nil {
		return err
	}

	book := excelize.NewFile()
	defer book.Close()

	const sheet = "Postings"
	if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := book.SetSheetRow(sheet, anchor, &cells); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "xlsx export written",
		log.FieldUserID, userID, "rows", len(rows))
	return nil
}
