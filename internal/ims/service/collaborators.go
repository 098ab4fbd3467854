package service

import (
	"context"
	"encoding/json"

	"github.com/bitfantasy/garo/internal/ims/entity"
)

// MailOutcome 邮件发送结果。发送是尽力而为：失败记日志，绝不作为错误上抛。
type MailOutcome int

const (
	MailSkipped MailOutcome = iota // 未配置SMTP，跳过
	MailSent
	MailFailed
)

func (o MailOutcome) String() string {
	switch o {
	case MailSent:
		return "sent"
	case MailFailed:
		return "failed"
	}
	return "skipped"
}

// Mailer 邮件发送方，构造时注入，便于测试替身
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) MailOutcome
}

// CapitalLedger 财务域资本账（外部协作方），审批通过时尽力扣减
type CapitalLedger interface {
	SpendCapital(ctx context.Context, amount float64, memo, refID, refType, userID string) error
}

// EventPublisher 前端推送通道（SSE），仅供UI刷新，不影响核心正确性
type EventPublisher interface {
	PublishStockLow(partID, partCode string, available int)
	PublishNotificationNew(notificationID string)
	PublishPOUpdate(poID, action string)
}

// toJSONB 实体快照转JSONB，审计日志用
func toJSONB(v interface{}) entity.JSONB {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m entity.JSONB
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
