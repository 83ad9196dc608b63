package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/storage"

	"github.com/xuri/excelize/v2"
)

func TestExportWriteCSV(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewExportService(f.repo, testLogger())

	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		ContactID:   f.contact.ID,
		BookingDate: core.NewDate(2026, 1, 10),
		Amount:      core.Money{Cents: -2550},
		Note:        "weekly shop",
	})
	f.addPosting(t, core.Posting{
		Kind:        core.KindDividend,
		AccountID:   f.account.ID,
		SecurityID:  f.security.ID,
		BookingDate: core.NewDate(2026, 1, 20),
		Amount:      core.Money{Cents: 10000},
		TaxAmount:   core.Money{Cents: 2637},
	})

	var buf bytes.Buffer
	if err := svc.WriteCSV(context.Background(), f.user.ID, storage.PostingFilter{}, &buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header plus 2 rows", len(records))
	}
	if records[0][0] != "booking_date" || records[0][9] != "note" {
		t.Errorf("header = %v", records[0])
	}

	byKind := map[string][]string{}
	for _, rec := range records[1:] {
		byKind[rec[2]] = rec
	}
	expense := byKind["expense"]
	if expense[3] != "-25.50" || expense[5] != "Checking" || expense[6] != "Groceries" || expense[7] != "Supermarket" {
		t.Errorf("expense row = %v", expense)
	}
	dividend := byKind["dividend"]
	if dividend[3] != "100.00" || dividend[4] != "26.37" || dividend[8] != "World ETF" {
		t.Errorf("dividend row = %v", dividend)
	}
}

// An exported file must import cleanly into an account set with the same
// names, with every row deduplicated against nothing and nothing lost.
func TestExportImportRoundTrip(t *testing.T) {
	f := newLedgerFixture(t)
	exporter := NewExportService(f.repo, testLogger())
	importer := NewImportService(f.repo, testLogger())
	ctx := context.Background()

	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		BookingDate: core.NewDate(2026, 1, 10),
		Amount:      core.Money{Cents: -2550},
	})

	var buf bytes.Buffer
	if err := exporter.WriteCSV(ctx, f.user.ID, storage.PostingFilter{}, &buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	other, err := f.repo.CreateUser(ctx, core.User{Email: "other@example.com", DisplayName: "Other", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := f.repo.CreateAccount(ctx, core.Account{UserID: other.ID, Name: "Checking", Kind: core.AccountChecking, Active: true}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := f.repo.CreateCategory(ctx, core.Category{UserID: other.ID, Name: "Groceries", Active: true}); err != nil {
		t.Fatalf("create category: %v", err)
	}

	result, err := importer.Run(ctx, other.ID, strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("import exported csv: %v", err)
	}
	if result.Imported != 1 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v, want 1 imported", result)
	}
}

func TestExportWriteReportCSV(t *testing.T) {
	f := newLedgerFixture(t)
	reports := NewReportService(f.repo, 16, time.Minute, testLogger())
	exporter := NewExportService(f.repo, testLogger())
	ctx := context.Background()

	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		ContactID:   f.contact.ID,
		BookingDate: core.NewDate(2026, 1, 10),
		Amount:      core.Money{Cents: -2500},
	})

	report, err := reports.Build(ctx, f.user.ID, core.ReportParams{
		From: core.NewDate(2026, 1, 1),
		To:   core.NewDate(2026, 2, 28),
	})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	var buf bytes.Buffer
	if err := exporter.WriteReportCSV(ctx, report, &buf); err != nil {
		t.Fatalf("write report csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse report csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header, one leaf, total", len(records))
	}
	wantHeader := []string{"kind", "category", "entity", "total", "2026-01", "2026-02"}
	for i, h := range wantHeader {
		if records[0][i] != h {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}
	leaf := records[1]
	if leaf[0] != "expense" || leaf[1] != "Groceries" || leaf[2] != "Supermarket" || leaf[3] != "-25.00" {
		t.Errorf("leaf row = %v", leaf)
	}
	total := records[2]
	if total[0] != "total" || total[3] != "-25.00" || total[4] != "-25.00" || total[5] != "0.00" {
		t.Errorf("total row = %v", total)
	}
}

func TestExportWriteXLSX(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewExportService(f.repo, testLogger())

	f.addPosting(t, core.Posting{
		Kind:        core.KindIncome,
		AccountID:   f.account.ID,
		BookingDate: core.NewDate(2026, 3, 1),
		Amount:      core.Money{Cents: 300000},
		Note:        "salary",
	})

	var buf bytes.Buffer
	if err := svc.WriteXLSX(context.Background(), f.user.ID, storage.PostingFilter{}, &buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	book, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows("Postings")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus 1", len(rows))
	}
	if rows[1][2] != "income" || rows[1][3] != "3000.00" || rows[1][9] != "salary" {
		t.Errorf("row = %v", rows[1])
	}
}
