package services

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError})
}

type ledgerFixture struct {
	repo     *storage.Repository
	user     core.User
	account  core.Account
	category core.Category
	contact  core.Contact
	security core.Security
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(ctx, core.User{Email: "report@example.com", DisplayName: "Reporter", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	account, err := repo.CreateAccount(ctx, core.Account{UserID: user.ID, Name: "Checking", Kind: core.AccountChecking, Active: true})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	category, err := repo.CreateCategory(ctx, core.Category{UserID: user.ID, Name: "Groceries", Active: true})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	contact, err := repo.CreateContact(ctx, core.Contact{UserID: user.ID, Name: "Supermarket", Active: true})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	security, err := repo.CreateSecurity(ctx, core.Security{UserID: user.ID, Name: "World ETF", Active: true})
	if err != nil {
		t.Fatalf("create security: %v", err)
	}

	return &ledgerFixture{repo: repo, user: user, account: account, category: category, contact: contact, security: security}
}

func (f *ledgerFixture) addPosting(t *testing.T, p core.Posting) core.Posting {
	t.Helper()
	p.UserID = f.user.ID
	p.Normalize()
	created, err := f.repo.CreatePosting(context.Background(), p, "")
	if err != nil {
		t.Fatalf("create posting: %v", err)
	}
	return created
}

func TestReportBuild_MonthlyTree(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewReportService(f.repo, 16, time.Minute, testLogger())

	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		ContactID:   f.contact.ID,
		BookingDate: core.NewDate(2026, 1, 10),
		Amount:      core.Money{Cents: -2500},
	})
	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		ContactID:   f.contact.ID,
		BookingDate: core.NewDate(2026, 2, 5),
		Amount:      core.Money{Cents: -1500},
	})
	f.addPosting(t, core.Posting{
		Kind:        core.KindIncome,
		AccountID:   f.account.ID,
		BookingDate: core.NewDate(2026, 1, 1),
		Amount:      core.Money{Cents: 300000},
	})

	report, err := svc.Build(context.Background(), f.user.ID, core.ReportParams{
		From: core.NewDate(2026, 1, 1),
		To:   core.NewDate(2026, 3, 31),
	})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	wantLabels := []string{"2026-01", "2026-02", "2026-03"}
	if len(report.BucketLabels) != len(wantLabels) {
		t.Fatalf("bucket labels = %v, want %v", report.BucketLabels, wantLabels)
	}
	for i, label := range wantLabels {
		if report.BucketLabels[i] != label {
			t.Errorf("label[%d] = %q, want %q", i, report.BucketLabels[i], label)
		}
	}

	if report.Total.Total.Cents != 300000-2500-1500 {
		t.Errorf("grand total = %d, want %d", report.Total.Total.Cents, 300000-2500-1500)
	}

	// Types follow the fixed kind order: income before expense.
	if len(report.Types) != 2 {
		t.Fatalf("types = %d, want 2", len(report.Types))
	}
	if report.Types[0].Kind != core.KindIncome || report.Types[1].Kind != core.KindExpense {
		t.Errorf("type order = %s, %s", report.Types[0].Kind, report.Types[1].Kind)
	}

	expense := report.Types[1]
	if expense.Line.Total.Cents != -4000 {
		t.Errorf("expense total = %d, want -4000", expense.Line.Total.Cents)
	}
	if len(expense.Categories) != 1 {
		t.Fatalf("expense categories = %d, want 1", len(expense.Categories))
	}
	grocery := expense.Categories[0]
	if grocery.Name != "Groceries" {
		t.Errorf("category name = %q", grocery.Name)
	}
	if grocery.Line.PerBucket[0].Cents != -2500 || grocery.Line.PerBucket[1].Cents != -1500 || grocery.Line.PerBucket[2].Cents != 0 {
		t.Errorf("per-bucket = %v", grocery.Line.PerBucket)
	}
	if len(grocery.Entities) != 1 || grocery.Entities[0].Name != "Supermarket" {
		t.Fatalf("entities = %+v", grocery.Entities)
	}

	// Income has no category: it lands in the uncategorized group with the
	// account as entity.
	income := report.Types[0]
	if income.Categories[0].ID != 0 || income.Categories[0].Name != "Uncategorized" {
		t.Errorf("income category = %+v", income.Categories[0])
	}
	if income.Categories[0].Entities[0].Kind != core.EntityAccount {
		t.Errorf("income entity kind = %s", income.Categories[0].Entities[0].Kind)
	}
}

func TestReportBuild_NetDividends(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewReportService(f.repo, 16, time.Minute, testLogger())

	f.addPosting(t, core.Posting{
		Kind:        core.KindDividend,
		AccountID:   f.account.ID,
		SecurityID:  f.security.ID,
		BookingDate: core.NewDate(2026, 1, 20),
		Amount:      core.Money{Cents: 10000},
		TaxAmount:   core.Money{Cents: 2637},
	})

	params := core.ReportParams{
		From: core.NewDate(2026, 1, 1),
		To:   core.NewDate(2026, 1, 31),
	}

	gross, err := svc.Build(context.Background(), f.user.ID, params)
	if err != nil {
		t.Fatalf("build gross report: %v", err)
	}
	if gross.Total.Total.Cents != 10000 {
		t.Errorf("gross total = %d, want 10000", gross.Total.Total.Cents)
	}

	params.NetDividends = true
	net, err := svc.Build(context.Background(), f.user.ID, params)
	if err != nil {
		t.Fatalf("build net report: %v", err)
	}
	if net.Total.Total.Cents != 7363 {
		t.Errorf("net total = %d, want 7363", net.Total.Total.Cents)
	}
}

func TestReportBuild_CompareAndBasis(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewReportService(f.repo, 16, time.Minute, testLogger())

	// January spending, plus a December posting for the comparison window.
	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		BookingDate: core.NewDate(2025, 12, 20),
		Amount:      core.Money{Cents: -1000},
	})
	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		CategoryID:  f.category.ID,
		BookingDate: core.NewDate(2026, 1, 10),
		ValutaDate:  core.NewDate(2026, 2, 2),
		Amount:      core.Money{Cents: -3000},
	})

	report, err := svc.Build(context.Background(), f.user.ID, core.ReportParams{
		From:    core.NewDate(2026, 1, 1),
		To:      core.NewDate(2026, 1, 31),
		Compare: core.ComparePreviousPeriod,
	})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.Total.Total.Cents != -3000 {
		t.Errorf("current total = %d, want -3000", report.Total.Total.Cents)
	}
	if report.Total.CompareTotal == nil || report.Total.CompareTotal.Cents != -1000 {
		t.Errorf("compare total = %+v, want -1000", report.Total.CompareTotal)
	}
	if report.Total.Delta == nil || report.Total.Delta.Cents != -2000 {
		t.Errorf("delta = %+v, want -2000", report.Total.Delta)
	}

	// Valuta basis moves the January posting into February.
	valuta, err := svc.Build(context.Background(), f.user.ID, core.ReportParams{
		From:  core.NewDate(2026, 1, 1),
		To:    core.NewDate(2026, 1, 31),
		Basis: core.BasisValuta,
	})
	if err != nil {
		t.Fatalf("build valuta report: %v", err)
	}
	if valuta.Total.Total.Cents != 0 {
		t.Errorf("valuta January total = %d, want 0", valuta.Total.Total.Cents)
	}
}

func TestReportBuild_QuarterBuckets(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewReportService(f.repo, 16, time.Minute, testLogger())

	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		BookingDate: core.NewDate(2026, 2, 1),
		Amount:      core.Money{Cents: -100},
	})
	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		BookingDate: core.NewDate(2026, 5, 1),
		Amount:      core.Money{Cents: -200},
	})

	report, err := svc.Build(context.Background(), f.user.ID, core.ReportParams{
		From:   core.NewDate(2026, 1, 1),
		To:     core.NewDate(2026, 6, 30),
		Bucket: core.BucketQuarter,
	})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	wantLabels := []string{"2026-Q1", "2026-Q2"}
	if len(report.BucketLabels) != 2 || report.BucketLabels[0] != wantLabels[0] || report.BucketLabels[1] != wantLabels[1] {
		t.Fatalf("bucket labels = %v, want %v", report.BucketLabels, wantLabels)
	}
	if report.Total.PerBucket[0].Cents != -100 || report.Total.PerBucket[1].Cents != -200 {
		t.Errorf("per-bucket = %v", report.Total.PerBucket)
	}
}

func TestReportBuild_InvalidParams(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewReportService(f.repo, 16, time.Minute, testLogger())
	ctx := context.Background()

	cases := []struct {
		name   string
		params core.ReportParams
	}{
		{"missing range", core.ReportParams{}},
		{"inverted range", core.ReportParams{From: core.NewDate(2026, 2, 1), To: core.NewDate(2026, 1, 1)}},
		{"range too wide", core.ReportParams{From: core.NewDate(2010, 1, 1), To: core.NewDate(2026, 1, 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Build(ctx, f.user.ID, tc.params); !errors.Is(err, core.ErrInvalidRange) {
				t.Errorf("error = %v, want ErrInvalidRange", err)
			}
		})
	}

	if _, err := svc.Build(ctx, f.user.ID, core.ReportParams{
		From:  core.NewDate(2026, 1, 1),
		To:    core.NewDate(2026, 1, 31),
		Kinds: []core.PostingKind{"gambling"},
	}); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("error = %v, want ErrInvalidKind", err)
	}
}

func TestReportCacheInvalidation(t *testing.T) {
	f := newLedgerFixture(t)
	svc := NewReportService(f.repo, 16, time.Minute, testLogger())
	ctx := context.Background()

	params := core.ReportParams{From: core.NewDate(2026, 1, 1), To: core.NewDate(2026, 1, 31)}

	first, err := svc.Build(ctx, f.user.ID, params)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if first.Total.Total.Cents != 0 {
		t.Fatalf("empty ledger total = %d", first.Total.Total.Cents)
	}

	f.addPosting(t, core.Posting{
		Kind:        core.KindExpense,
		AccountID:   f.account.ID,
		BookingDate: core.NewDate(2026, 1, 15),
		Amount:      core.Money{Cents: -500},
	})

	// Still cached: the write happened outside the posting service.
	cached, err := svc.Build(ctx, f.user.ID, params)
	if err != nil {
		t.Fatalf("build cached report: %v", err)
	}
	if cached.Total.Total.Cents != 0 {
		t.Errorf("cached total = %d, want 0", cached.Total.Total.Cents)
	}

	svc.Invalidate(f.user.ID)
	fresh, err := svc.Build(ctx, f.user.ID, params)
	if err != nil {
		t.Fatalf("build fresh report: %v", err)
	}
	if fresh.Total.Total.Cents != -500 {
		t.Errorf("fresh total = %d, want -500", fresh.Total.Total.Cents)
	}
}
