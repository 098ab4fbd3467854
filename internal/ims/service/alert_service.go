package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bitfantasy/garo/internal/ims/entity"
	"github.com/bitfantasy/garo/internal/ims/repository"
	"github.com/redis/go-redis/v9"
)

const sweepLeaseKey = "ims:lowstock:sweep"

// CheckResult 单零件低库存检查结果
type CheckResult struct {
	Alerted bool `json:"alerted"`
	Low     bool `json:"low"`
}

// SweepResult 全量巡检汇总
type SweepResult struct {
	Scanned int `json:"scanned"`
	Low     int `json:"low"`
	Alerted int `json:"alerted"`
	Failed  int `json:"failed"`
}

// AlertService 低库存告警引擎。
// 每个零件最多一条未读站内通知，冷却窗口内不重发邮件，
// 持续低库存的零件过了冷却窗口会再次告警，不会被静默丢弃。
type AlertService struct {
	partRepo  *repository.PartRepository
	notifRepo *repository.NotificationRepository
	mailer    Mailer
	events    EventPublisher
	rdb       *redis.Client

	minInterval time.Duration
	alertEmail  string // 收件人，采购负责人邮箱
	emailWait   time.Duration

	now func() time.Time // 测试可替换
}

func NewAlertService(partRepo *repository.PartRepository, notifRepo *repository.NotificationRepository, mailer Mailer, events EventPublisher, minInterval time.Duration, alertEmail string) *AlertService {
	if minInterval <= 0 {
		minInterval = 12 * time.Hour
	}
	return &AlertService{
		partRepo:    partRepo,
		notifRepo:   notifRepo,
		mailer:      mailer,
		events:      events,
		minInterval: minInterval,
		alertEmail:  alertEmail,
		emailWait:   5 * time.Second,
		now:         time.Now,
	}
}

// SetRedis 注入redis客户端，巡检用租约防止重叠执行
func (s *AlertService) SetRedis(rdb *redis.Client) {
	s.rdb = rdb
}

// CheckPartForLowStock 单零件低库存检查。
// 停用零件直接跳过；不低时清掉冷却标记，库存恢复后再跌破会立即重新告警。
func (s *AlertService) CheckPartForLowStock(ctx context.Context, partID string) (CheckResult, error) {
	part, err := s.partRepo.FindByID(ctx, partID)
	if err != nil {
		if err == repository.ErrNotFound {
			return CheckResult{}, NotFoundErr("零件不存在")
		}
		return CheckResult{}, err
	}
	if !part.IsActive {
		return CheckResult{}, nil
	}

	res := EvaluateLowStock(part)
	if !res.IsLow {
		if part.LastAlertedAt != nil {
			if err := s.partRepo.SetLastAlertedAt(ctx, part.ID, nil); err != nil {
				log.Printf("[IMS] 清除告警冷却标记失败 part=%s: %v", part.ID, err)
			}
		}
		return CheckResult{}, nil
	}

	now := s.now()
	if part.LastAlertedAt != nil && now.Sub(*part.LastAlertedAt) < s.minInterval {
		// 冷却窗口内不重发，但如实报告低库存
		return CheckResult{Alerted: false, Low: true}, nil
	}

	available := part.Available()

	// 站内通知，按零件去重
	notif := &entity.Notification{
		Type:    entity.NotificationTypeLowStock,
		Title:   "低库存预警",
		Message: fmt.Sprintf("零件 %s（%s）可用库存%d，已低于再订货点%d，请及时采购。", part.Name, part.PartCode, available, part.Stock.ReorderLevel),
		Link:    "/ims/parts/" + part.ID,
		PartID:  part.ID,
		Meta:    entity.JSONB{"part_id": part.ID, "part_code": part.PartCode},
	}
	created, err := s.notifRepo.CreateIfAbsent(ctx, notif)
	if err != nil {
		log.Printf("[IMS] 低库存通知创建失败 part=%s: %v", part.ID, err)
	} else if created && s.events != nil {
		s.events.PublishNotificationNew(notif.ID)
	}

	// 邮件尽力而为：限时等待，失败只记日志，不回滚不上抛
	if s.mailer != nil && s.alertEmail != "" {
		mailCtx, cancel := context.WithTimeout(ctx, s.emailWait)
		outcome := s.mailer.Send(mailCtx, s.alertEmail,
			fmt.Sprintf("低库存预警：%s", part.PartCode),
			s.buildAlertEmail(part, available))
		cancel()
		if outcome == MailFailed {
			log.Printf("[IMS] 低库存邮件发送失败 part=%s to=%s", part.ID, s.alertEmail)
		}
	}

	if s.events != nil {
		s.events.PublishStockLow(part.ID, part.PartCode, available)
	}

	if err := s.partRepo.SetLastAlertedAt(ctx, part.ID, &now); err != nil {
		log.Printf("[IMS] 更新告警冷却标记失败 part=%s: %v", part.ID, err)
	}

	return CheckResult{Alerted: true, Low: true}, nil
}

// ScanAllPartsForLowStock 全量巡检。单个零件失败只记日志继续扫其余零件。
// 定时器驱动，同时也在库存下降操作与PO收货后被同步触发。
func (s *AlertService) ScanAllPartsForLowStock(ctx context.Context) (SweepResult, error) {
	if !s.acquireSweepLease(ctx) {
		log.Printf("[IMS] 低库存巡检租约未获取，本轮跳过")
		return SweepResult{}, nil
	}

	ids, err := s.partRepo.FindActiveIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, id := range ids {
		result.Scanned++
		cr, err := s.CheckPartForLowStock(ctx, id)
		if err != nil {
			result.Failed++
			log.Printf("[IMS] 巡检零件失败 part=%s: %v", id, err)
			continue
		}
		if cr.Low {
			result.Low++
		}
		if cr.Alerted {
			result.Alerted++
		}
	}

	log.Printf("[IMS] 低库存巡检完成 scanned=%d low=%d alerted=%d failed=%d",
		result.Scanned, result.Low, result.Alerted, result.Failed)
	return result, nil
}

// acquireSweepLease 拿不到租约说明另一轮巡检还在跑
func (s *AlertService) acquireSweepLease(ctx context.Context) bool {
	if s.rdb == nil {
		return true
	}
	ok, err := s.rdb.SetNX(ctx, sweepLeaseKey, s.now().Unix(), time.Minute).Result()
	if err != nil {
		// redis不可用时退化为直接巡检
		log.Printf("[IMS] 巡检租约获取出错，继续执行: %v", err)
		return true
	}
	return ok
}

func (s *AlertService) buildAlertEmail(part *entity.Part, available int) string {
	return fmt.Sprintf(`<h3>低库存预警</h3>
<p>零件 <b>%s</b>（编码 %s）库存已低于再订货点。</p>
<ul>
<li>现有库存：%d</li>
<li>已预留：%d</li>
<li>可用库存：%d</li>
<li>再订货点：%d</li>
</ul>
<p>请及时创建采购订单补货。</p>`,
		part.Name, part.PartCode,
		part.Stock.OnHand, part.Stock.Reserved, available, part.Stock.ReorderLevel)
}
