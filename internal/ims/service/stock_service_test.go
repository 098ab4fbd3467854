package service

import (
	"context"
	"testing"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/bitfantasy/garo/internal/ims/testutil"
	"gorm.io/gorm"
)

func TestEvaluateLowStock(t *testing.T) {
	cases := []struct {
		name     string
		onHand   int
		reserved int
		reorder  int
		wantLow  bool
	}{
		{"well above threshold", 100, 0, 10, false},
		{"just above threshold", 12, 1, 10, false},
		{"exactly at threshold", 15, 5, 10, true},
		{"below threshold", 8, 2, 10, true},
		{"reserved pushes below", 20, 15, 10, true},
		{"zero reorder level with stock", 5, 0, 0, false},
		{"zero reorder level exhausted", 5, 5, 0, true},
		{"fully reserved", 10, 10, 3, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &entity.Part{
				Stock: entity.StockLevel{
					OnHand:       tc.onHand,
					Reserved:     tc.reserved,
					ReorderLevel: tc.reorder,
				},
			}
			got := EvaluateLowStock(p)
			if got.IsLow != tc.wantLow {
				t.Fatalf("EvaluateLowStock(onHand=%d reserved=%d reorder=%d) = %v, want %v",
					tc.onHand, tc.reserved, tc.reorder, got.IsLow, tc.wantLow)
			}
			if got.IsLow && got.Reason == "" {
				t.Fatal("low result should carry a reason")
			}
		})
	}
}

func setupStockTest(t *testing.T) (*gorm.DB, *StockService, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewStockService(repos.Part, repos.UsageLog, repos.AuditLog)
	return db, svc, repos
}

func TestReserveAndConsumeFlow(t *testing.T) {
	db, svc, _ := setupStockTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-flow-001", "OIL-FILTER-01", 10, 0, 2)

	// Reserve 4
	part, err := svc.Reserve(ctx, "user-1", "part-flow-001", 4)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if part.Stock.OnHand != 10 || part.Stock.Reserved != 4 {
		t.Fatalf("after reserve: on_hand=%d reserved=%d, want 10/4", part.Stock.OnHand, part.Stock.Reserved)
	}
	if part.Available() != 6 {
		t.Fatalf("available = %d, want 6", part.Available())
	}

	// Consume 3: on_hand drops, reservation released alongside
	jobID := "job-777"
	part, err = svc.Consume(ctx, "user-1", "part-flow-001", 3, &jobID, "前刹车保养")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if part.Stock.OnHand != 7 || part.Stock.Reserved != 1 {
		t.Fatalf("after consume: on_hand=%d reserved=%d, want 7/1", part.Stock.OnHand, part.Stock.Reserved)
	}

	// Usage log written with job reference
	var usage entity.PartUsageLog
	if err := db.Where("part_id = ?", "part-flow-001").First(&usage).Error; err != nil {
		t.Fatalf("usage log not found: %v", err)
	}
	if usage.QuantityUsed != 3 || usage.JobID == nil || *usage.JobID != "job-777" {
		t.Fatalf("unexpected usage log: qty=%d job=%v", usage.QuantityUsed, usage.JobID)
	}

	// Replenish 5
	part, err = svc.Replenish(ctx, "user-1", "part-flow-001", 5, "manual")
	if err != nil {
		t.Fatalf("replenish failed: %v", err)
	}
	if part.Stock.OnHand != 12 || part.Stock.Reserved != 1 {
		t.Fatalf("after replenish: on_hand=%d reserved=%d, want 12/1", part.Stock.OnHand, part.Stock.Reserved)
	}
}

func TestReserveInsufficientLeavesStateUnchanged(t *testing.T) {
	db, svc, _ := setupStockTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-short-001", "BRAKE-PAD-01", 5, 3, 0)

	_, err := svc.Reserve(ctx, "user-1", "part-short-001", 3) // available is only 2
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("error kind = %s, want %s", KindOf(err), KindInsufficientStock)
	}

	var part entity.Part
	if err := db.First(&part, "id = ?", "part-short-001").Error; err != nil {
		t.Fatalf("reload part: %v", err)
	}
	if part.Stock.OnHand != 5 || part.Stock.Reserved != 3 {
		t.Fatalf("state changed on failed reserve: on_hand=%d reserved=%d", part.Stock.OnHand, part.Stock.Reserved)
	}
}

func TestConsumeMoreThanOnHandFails(t *testing.T) {
	db, svc, _ := setupStockTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-short-002", "SPARK-PLUG-01", 2, 0, 0)

	_, err := svc.Consume(ctx, "user-1", "part-short-002", 3, nil, "")
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("error kind = %s, want %s", KindOf(err), KindInsufficientStock)
	}
}

func TestConsumeReleasesOnlyUpToReserved(t *testing.T) {
	db, svc, _ := setupStockTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-rel-001", "AIR-FILTER-01", 10, 2, 0)

	// Consume 5 while only 2 reserved: reserved floors at 0, never negative
	part, err := svc.Consume(ctx, "user-1", "part-rel-001", 5, nil, "")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if part.Stock.OnHand != 5 || part.Stock.Reserved != 0 {
		t.Fatalf("after consume: on_hand=%d reserved=%d, want 5/0", part.Stock.OnHand, part.Stock.Reserved)
	}
}

func TestStockOpsRejectNonPositiveQty(t *testing.T) {
	db, svc, _ := setupStockTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-qty-001", "COOLANT-01", 10, 0, 0)

	for _, qty := range []int{0, -3} {
		if _, err := svc.Reserve(ctx, "u", "part-qty-001", qty); KindOf(err) != KindValidation {
			t.Fatalf("reserve qty=%d: kind=%s, want validation", qty, KindOf(err))
		}
		if _, err := svc.Consume(ctx, "u", "part-qty-001", qty, nil, ""); KindOf(err) != KindValidation {
			t.Fatalf("consume qty=%d: kind=%s, want validation", qty, KindOf(err))
		}
		if _, err := svc.Replenish(ctx, "u", "part-qty-001", qty, "manual"); KindOf(err) != KindValidation {
			t.Fatalf("replenish qty=%d: kind=%s, want validation", qty, KindOf(err))
		}
	}
}

func TestStockOpsUnknownPart(t *testing.T) {
	_, svc, _ := setupStockTest(t)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, "u", "no-such-part", 1); KindOf(err) != KindNotFound {
		t.Fatalf("reserve: kind=%s, want not_found", KindOf(err))
	}
	if _, err := svc.Replenish(ctx, "u", "no-such-part", 1, "manual"); KindOf(err) != KindNotFound {
		t.Fatalf("replenish: kind=%s, want not_found", KindOf(err))
	}
}

func TestInactivePartCannotReserve(t *testing.T) {
	db, svc, _ := setupStockTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-inactive-001", "WIPER-01", 10, 0, 0)
	if err := db.Model(&entity.Part{}).Where("id = ?", "part-inactive-001").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := svc.Reserve(ctx, "u", "part-inactive-001", 1)
	if err == nil {
		t.Fatal("expected error reserving inactive part")
	}
	if KindOf(err) != KindInsufficientStock {
		t.Fatalf("error kind = %s, want %s", KindOf(err), KindInsufficientStock)
	}
}
