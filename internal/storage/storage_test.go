package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finbook/internal/core"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "finbook.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Email:        "test@example.com",
		DisplayName:  "Test",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedAccount(t *testing.T, repo *Repository, userID int64, name string) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{
		UserID: userID,
		Name:   name,
		Kind:   core.AccountChecking,
		Active: true,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func TestAccountCRUD(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)

	acc := seedAccount(t, repo, user.ID, "Checking")
	if acc.ID == 0 {
		t.Fatal("expected non-zero account id")
	}

	got, err := repo.GetAccount(ctx, user.ID, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.Name != "Checking" || got.Kind != core.AccountChecking {
		t.Errorf("got %+v", got)
	}

	got.Name = "Main Checking"
	if err := repo.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("update account: %v", err)
	}
	got, _ = repo.GetAccount(ctx, user.ID, acc.ID)
	if got.Name != "Main Checking" {
		t.Errorf("name = %q after update", got.Name)
	}

	// Another user never sees the row.
	if _, err := repo.GetAccount(ctx, user.ID+1, acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user get: err = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteAccount(ctx, user.ID, acc.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := repo.GetAccount(ctx, user.ID, acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAccountInUse(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	acc := seedAccount(t, repo, user.ID, "Checking")

	_, err := repo.CreatePosting(ctx, core.Posting{
		UserID:      user.ID,
		Kind:        core.KindExpense,
		AccountID:   acc.ID,
		BookingDate: core.NewDate(2026, 3, 10),
		ValutaDate:  core.NewDate(2026, 3, 10),
		Amount:      core.Money{Cents: -4200},
	}, "")
	if err != nil {
		t.Fatalf("create posting: %v", err)
	}

	if err := repo.DeleteAccount(ctx, user.ID, acc.ID); !errors.Is(err, core.ErrInUse) {
		t.Errorf("delete referenced account: err = %v, want ErrInUse", err)
	}
}

func TestPostingAggregateMaintenance(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	acc := seedAccount(t, repo, user.ID, "Checking")

	p, err := repo.CreatePosting(ctx, core.Posting{
		UserID:      user.ID,
		Kind:        core.KindExpense,
		AccountID:   acc.ID,
		BookingDate: core.NewDate(2026, 3, 10),
		ValutaDate:  core.NewDate(2026, 4, 2),
		Amount:      core.Money{Cents: -4200},
	}, "")
	if err != nil {
		t.Fatalf("create posting: %v", err)
	}

	booking, err := repo.QueryAggregates(ctx, user.ID, core.BasisBooking, 2026, 1, 2026, 12)
	if err != nil {
		t.Fatalf("query booking aggregates: %v", err)
	}
	if len(booking) != 1 {
		t.Fatalf("booking aggregates = %d rows, want 1", len(booking))
	}
	if booking[0].Month != 3 || booking[0].SumCents != -4200 || booking[0].Count != 1 {
		t.Errorf("booking row = %+v", booking[0])
	}

	valuta, err := repo.QueryAggregates(ctx, user.ID, core.BasisValuta, 2026, 1, 2026, 12)
	if err != nil {
		t.Fatalf("query valuta aggregates: %v", err)
	}
	if len(valuta) != 1 || valuta[0].Month != 4 {
		t.Fatalf("valuta aggregates = %+v, want one April row", valuta)
	}

	// Moving the posting moves its aggregate contribution.
	p.BookingDate = core.NewDate(2026, 5, 1)
	p.ValutaDate = core.NewDate(2026, 5, 1)
	p.Amount = core.Money{Cents: -1000}
	if err := repo.UpdatePosting(ctx, p); err != nil {
		t.Fatalf("update posting: %v", err)
	}
	booking, _ = repo.QueryAggregates(ctx, user.ID, core.BasisBooking, 2026, 1, 2026, 12)
	if len(booking) != 1 || booking[0].Month != 5 || booking[0].SumCents != -1000 {
		t.Fatalf("after update booking aggregates = %+v", booking)
	}

	if _, err := repo.DeletePosting(ctx, user.ID, p.ID); err != nil {
		t.Fatalf("delete posting: %v", err)
	}
	booking, _ = repo.QueryAggregates(ctx, user.ID, core.BasisBooking, 2026, 1, 2026, 12)
	if len(booking) != 0 {
		t.Errorf("after delete booking aggregates = %+v, want none", booking)
	}
}

func TestRebuildAggregatesMatchesIncremental(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	acc := seedAccount(t, repo, user.ID, "Checking")

	dates := []core.Date{
		core.NewDate(2026, 1, 5),
		core.NewDate(2026, 1, 20),
		core.NewDate(2026, 2, 1),
	}
	for _, d := range dates {
		if _, err := repo.CreatePosting(ctx, core.Posting{
			UserID:      user.ID,
			Kind:        core.KindExpense,
			AccountID:   acc.ID,
			BookingDate: d,
			ValutaDate:  d,
			Amount:      core.Money{Cents: -500},
		}, ""); err != nil {
			t.Fatalf("create posting: %v", err)
		}
	}

	incremental, err := repo.QueryAggregates(ctx, user.ID, core.BasisBooking, 2026, 1, 2026, 12)
	if err != nil {
		t.Fatalf("query aggregates: %v", err)
	}

	if _, err := repo.RebuildAggregates(ctx, user.ID); err != nil {
		t.Fatalf("rebuild aggregates: %v", err)
	}
	rebuilt, err := repo.QueryAggregates(ctx, user.ID, core.BasisBooking, 2026, 1, 2026, 12)
	if err != nil {
		t.Fatalf("query aggregates after rebuild: %v", err)
	}

	if len(incremental) != len(rebuilt) {
		t.Fatalf("incremental %d rows, rebuilt %d rows", len(incremental), len(rebuilt))
	}
	for i := range incremental {
		if incremental[i] != rebuilt[i] {
			t.Errorf("row %d: incremental %+v, rebuilt %+v", i, incremental[i], rebuilt[i])
		}
	}
}

func TestImportHashDeduplication(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	acc := seedAccount(t, repo, user.ID, "Checking")

	p := core.Posting{
		UserID:      user.ID,
		Kind:        core.KindExpense,
		AccountID:   acc.ID,
		BookingDate: core.NewDate(2026, 3, 10),
		ValutaDate:  core.NewDate(2026, 3, 10),
		Amount:      core.Money{Cents: -4200},
	}
	if _, err := repo.CreatePosting(ctx, p, "hash-1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := repo.CreatePosting(ctx, p, "hash-1"); !errors.Is(err, core.ErrDuplicatePosting) {
		t.Errorf("duplicate insert: err = %v, want ErrDuplicatePosting", err)
	}
	// No hash means no dedupe.
	if _, err := repo.CreatePosting(ctx, p, ""); err != nil {
		t.Errorf("insert without hash: %v", err)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)

	cat, err := repo.CreateCategory(ctx, core.Category{UserID: user.ID, Name: "Groceries", Active: true})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	b, err := repo.CreateBudget(ctx, core.Budget{
		UserID:              user.ID,
		Name:                "Groceries",
		CategoryID:          cat.ID,
		AmountPerOccurrence: core.Money{Cents: 30000},
		Active:              true,
		Rules: []core.BudgetRule{
			{Frequency: core.FreqMonthly, Interval: 1, AnchorDate: core.NewDate(2026, 1, 1)},
		},
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}

	got, err := repo.GetBudget(ctx, user.ID, b.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if len(got.Rules) != 1 || got.Rules[0].Frequency != core.FreqMonthly {
		t.Fatalf("rules = %+v", got.Rules)
	}

	got.Rules = append(got.Rules, core.BudgetRule{
		Frequency: core.FreqWeekly, Interval: 2, AnchorDate: core.NewDate(2026, 1, 6),
	})
	if err := repo.UpdateBudget(ctx, got); err != nil {
		t.Fatalf("update budget: %v", err)
	}
	got, _ = repo.GetBudget(ctx, user.ID, b.ID)
	if len(got.Rules) != 2 {
		t.Errorf("rules after update = %d, want 2", len(got.Rules))
	}
}

func TestSavingsPlanExecution(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	acc := seedAccount(t, repo, user.ID, "Savings")

	plan, err := repo.CreateSavingsPlan(ctx, core.SavingsPlan{
		UserID:    user.ID,
		Name:      "ETF plan",
		AccountID: acc.ID,
		Amount:    core.Money{Cents: 20000},
		Interval:  core.IntervalMonthly,
		StartDate: core.NewDate(2026, 1, 1),
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if !plan.LastExecution.IsZero() {
		t.Fatalf("new plan has last execution %v", plan.LastExecution)
	}

	executed := core.NewDate(2026, 2, 1)
	if err := repo.UpdateSavingsPlanExecution(ctx, user.ID, plan.ID, executed); err != nil {
		t.Fatalf("update execution: %v", err)
	}
	got, err := repo.GetSavingsPlan(ctx, user.ID, plan.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if !got.LastExecution.Equal(executed) {
		t.Errorf("last execution = %v, want %v", got.LastExecution, executed)
	}
}

func TestDeleteSavingsPlanDetachesPostings(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	acc := seedAccount(t, repo, user.ID, "Savings")

	plan, err := repo.CreateSavingsPlan(ctx, core.SavingsPlan{
		UserID:    user.ID,
		Name:      "ETF plan",
		AccountID: acc.ID,
		Amount:    core.Money{Cents: 20000},
		Interval:  core.IntervalMonthly,
		StartDate: core.NewDate(2026, 1, 1),
		Active:    true,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	p, err := repo.CreatePosting(ctx, core.Posting{
		UserID:        user.ID,
		Kind:          core.KindTransfer,
		AccountID:     acc.ID,
		SavingsPlanID: plan.ID,
		BookingDate:   core.NewDate(2026, 2, 1),
		ValutaDate:    core.NewDate(2026, 2, 1),
		Amount:        core.Money{Cents: -20000},
	}, "")
	if err != nil {
		t.Fatalf("create posting: %v", err)
	}

	if err := repo.DeleteSavingsPlan(ctx, user.ID, plan.ID); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if _, err := repo.GetSavingsPlan(ctx, user.ID, plan.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get deleted plan: err = %v, want ErrNotFound", err)
	}

	// The booked posting survives, detached from the plan.
	got, err := repo.GetPosting(ctx, user.ID, p.ID)
	if err != nil {
		t.Fatalf("get posting: %v", err)
	}
	if got.SavingsPlanID != 0 {
		t.Errorf("posting savings_plan_id = %d, want 0", got.SavingsPlanID)
	}
}

func TestTaskLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)

	task, err := repo.CreateTask(ctx, core.Task{
		ID:      "task-1",
		UserID:  user.ID,
		Kind:    core.TaskBackup,
		Payload: "{}",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != core.TaskPending {
		t.Fatalf("status = %s, want pending", task.Status)
	}

	if err := repo.MarkTaskRunning(ctx, task.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	// A second pickup must not succeed.
	if err := repo.MarkTaskRunning(ctx, task.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second pickup: err = %v, want ErrNotFound", err)
	}

	if err := repo.MarkTaskSucceeded(ctx, task.ID, `{"rows":3}`); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	got, err := repo.GetTask(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != core.TaskSucceeded || got.Result != `{"rows":3}` || got.FinishedAt == nil {
		t.Errorf("task after finish = %+v", got)
	}
}

func TestNotifications(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)

	n, err := repo.CreateNotification(ctx, core.Notification{
		UserID: user.ID,
		Kind:   core.NotifyBudgetExceeded,
		Title:  "Budget exceeded",
	})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}

	unread, err := repo.ListNotifications(ctx, user.ID, true, 10)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("unread = %d, want 1", len(unread))
	}

	if err := repo.MarkNotificationRead(ctx, user.ID, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, _ = repo.ListNotifications(ctx, user.ID, true, 10)
	if len(unread) != 0 {
		t.Errorf("unread after mark = %d, want 0", len(unread))
	}
	if err := repo.MarkNotificationRead(ctx, user.ID, n.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("double mark read: err = %v, want ErrNotFound", err)
	}
}
