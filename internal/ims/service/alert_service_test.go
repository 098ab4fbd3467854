package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/bitfantasy/garo/internal/ims/testutil"
	"gorm.io/gorm"
)

type recordingMailer struct {
	outcome  MailOutcome
	subjects []string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, html string) MailOutcome {
	m.subjects = append(m.subjects, subject)
	return m.outcome
}

type recordingEvents struct {
	stockLow      int
	notifications int
	poUpdates     int
}

func (e *recordingEvents) PublishStockLow(partID, partCode string, available int) { e.stockLow++ }
func (e *recordingEvents) PublishNotificationNew(notificationID string)           { e.notifications++ }
func (e *recordingEvents) PublishPOUpdate(poID, action string)                    { e.poUpdates++ }

func setupAlertTest(t *testing.T) (*gorm.DB, *AlertService, *recordingMailer, *recordingEvents, *time.Time) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)

	mailer := &recordingMailer{outcome: MailSent}
	events := &recordingEvents{}
	svc := NewAlertService(repos.Part, repos.Notification, mailer, events, 12*time.Hour, "purchasing@garo.local")

	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	svc.emailWait = 100 * time.Millisecond
	return db, svc, mailer, events, &clock
}

func countNotifications(t *testing.T, db *gorm.DB, partID string, unreadOnly bool) int64 {
	t.Helper()
	q := db.Model(&entity.Notification{}).Where("part_id = ? AND type = ?", partID, entity.NotificationTypeLowStock)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}

func TestLowStockAlertCooldown(t *testing.T) {
	db, svc, mailer, events, clock := setupAlertTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-al-001", "BRAKE-PAD-F", 2, 0, 5)

	res, err := svc.CheckPartForLowStock(ctx, "part-al-001")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if !res.Alerted || !res.Low {
		t.Fatalf("first check = %+v, want alerted low", res)
	}
	if len(mailer.subjects) != 1 {
		t.Fatalf("mails = %d, want 1", len(mailer.subjects))
	}
	if events.stockLow != 1 || events.notifications != 1 {
		t.Fatalf("events = %+v", events)
	}
	if countNotifications(t, db, "part-al-001", true) != 1 {
		t.Fatal("expected exactly one unread notification")
	}

	// 冷却窗口内重复检查：低库存如实上报但不再发告警
	*clock = clock.Add(30 * time.Minute)
	res, err = svc.CheckPartForLowStock(ctx, "part-al-001")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if res.Alerted || !res.Low {
		t.Fatalf("second check = %+v, want low without alert", res)
	}
	if len(mailer.subjects) != 1 {
		t.Fatalf("cooldown violated, mails = %d", len(mailer.subjects))
	}

	// 过了冷却窗口仍然低库存：再次告警
	*clock = clock.Add(13 * time.Hour)
	res, err = svc.CheckPartForLowStock(ctx, "part-al-001")
	if err != nil {
		t.Fatalf("third check: %v", err)
	}
	if !res.Alerted {
		t.Fatalf("third check = %+v, want re-alert after cooldown", res)
	}
	if len(mailer.subjects) != 2 {
		t.Fatalf("mails = %d, want 2", len(mailer.subjects))
	}
	// 站内通知按零件去重：未读的那条还在，不新增
	if countNotifications(t, db, "part-al-001", false) != 1 {
		t.Fatal("unread dedup should suppress the second notification row")
	}
}

func TestLowStockAlertRearmsAfterRecovery(t *testing.T) {
	db, svc, mailer, _, clock := setupAlertTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-al-002", "COOLANT-G12", 1, 0, 4)

	if res, err := svc.CheckPartForLowStock(ctx, "part-al-002"); err != nil || !res.Alerted {
		t.Fatalf("initial alert: res=%+v err=%v", res, err)
	}

	// 补货至再订货点以上，检查应清掉冷却标记
	if err := db.Model(&entity.Part{}).Where("id = ?", "part-al-002").
		Update("stock_on_hand", 20).Error; err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if res, err := svc.CheckPartForLowStock(ctx, "part-al-002"); err != nil || res.Low {
		t.Fatalf("after recovery: res=%+v err=%v", res, err)
	}
	var part entity.Part
	db.First(&part, "id = ?", "part-al-002")
	if part.LastAlertedAt != nil {
		t.Fatal("recovery should clear last_alerted_at")
	}

	// 恢复后再次跌破：立即告警，不受上一轮冷却影响
	*clock = clock.Add(5 * time.Minute)
	if err := db.Model(&entity.Part{}).Where("id = ?", "part-al-002").
		Update("stock_on_hand", 1).Error; err != nil {
		t.Fatalf("drop stock: %v", err)
	}
	res, err := svc.CheckPartForLowStock(ctx, "part-al-002")
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if !res.Alerted {
		t.Fatal("should alert immediately after recovery then drop")
	}
	if len(mailer.subjects) != 2 {
		t.Fatalf("mails = %d, want 2", len(mailer.subjects))
	}
}

func TestLowStockNotificationAfterRead(t *testing.T) {
	db, svc, _, _, clock := setupAlertTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-al-003", "WIPER-BLADE-22", 0, 0, 2)

	if _, err := svc.CheckPartForLowStock(ctx, "part-al-003"); err != nil {
		t.Fatalf("first check: %v", err)
	}

	// 已读之后去重约束放行，下一轮告警生成新的未读通知
	if err := db.Model(&entity.Notification{}).Where("part_id = ?", "part-al-003").
		Update("is_read", true).Error; err != nil {
		t.Fatalf("mark read: %v", err)
	}
	*clock = clock.Add(24 * time.Hour)
	res, err := svc.CheckPartForLowStock(ctx, "part-al-003")
	if err != nil || !res.Alerted {
		t.Fatalf("second check: res=%+v err=%v", res, err)
	}
	if got := countNotifications(t, db, "part-al-003", false); got != 2 {
		t.Fatalf("total notifications = %d, want 2", got)
	}
	if got := countNotifications(t, db, "part-al-003", true); got != 1 {
		t.Fatalf("unread notifications = %d, want 1", got)
	}
}

func TestLowStockSkipsInactivePart(t *testing.T) {
	db, svc, mailer, _, _ := setupAlertTest(t)
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-al-004", "RETIRED-SENSOR", 0, 0, 3)
	if err := db.Model(&entity.Part{}).Where("id = ?", "part-al-004").
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	res, err := svc.CheckPartForLowStock(ctx, "part-al-004")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Low || res.Alerted {
		t.Fatalf("inactive part flagged: %+v", res)
	}
	if len(mailer.subjects) != 0 {
		t.Fatal("inactive part should not trigger mail")
	}
	if _, err := svc.CheckPartForLowStock(ctx, "no-such-part"); KindOf(err) != KindNotFound {
		t.Fatalf("missing part: kind=%s", KindOf(err))
	}
}

func TestLowStockSweepCounts(t *testing.T) {
	db, svc, _, _, _ := setupAlertTest(t)
	ctx := context.Background()
	// 两个活跃（一低一正常），一个停用的低库存不进巡检
	testutil.SeedPart(t, db, "part-sw-001", "SPARK-PLUG-IR", 1, 0, 6)
	testutil.SeedPart(t, db, "part-sw-002", "AIR-FILTER-K", 40, 0, 6)
	testutil.SeedPart(t, db, "part-sw-003", "LEGACY-BELT", 0, 0, 2)
	if err := db.Model(&entity.Part{}).Where("id = ?", "part-sw-003").
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	res, err := svc.ScanAllPartsForLowStock(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Scanned != 2 {
		t.Fatalf("scanned = %d, want 2", res.Scanned)
	}
	if res.Low != 1 || res.Alerted != 1 || res.Failed != 0 {
		t.Fatalf("sweep = %+v", res)
	}
}

func TestAlertToleratesMailFailure(t *testing.T) {
	db, svc, mailer, _, _ := setupAlertTest(t)
	mailer.outcome = MailFailed
	ctx := context.Background()
	testutil.SeedPart(t, db, "part-al-005", "FUSE-MINI-10A", 0, 0, 1)

	res, err := svc.CheckPartForLowStock(ctx, "part-al-005")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Alerted {
		t.Fatal("mail failure must not suppress the alert")
	}
	if countNotifications(t, db, "part-al-005", true) != 1 {
		t.Fatal("notification should still be recorded")
	}
}
