// Package notify 将“已创建”事件发布到消息总线，并提供邮件订阅者
package notify

import (
	"context"
	"time"

	"pflanzen/logging"
	"pflanzen/messaging"
	"pflanzen/patterns/retry"
	"pflanzen/pflanze"
)

// TypeCreated 创建事件的消息类型
const TypeCreated = "pflanze.created"

// Created 创建事件负载
type Created struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// OutcomeCounter 通知结果计数
type OutcomeCounter interface {
	IncNotification(outcome string)
}

// Publisher 实现 pflanze.Notifier
type Publisher struct {
	bus     messaging.IMessageBus
	retry   retry.Config
	counter OutcomeCounter
	logger  logging.Logger
}

var _ pflanze.Notifier = (*Publisher)(nil)

// NewPublisher 创建发布器；counter 可为 nil
func NewPublisher(bus messaging.IMessageBus, cfg retry.Config, counter OutcomeCounter) *Publisher {
	return &Publisher{
		bus:     bus,
		retry:   cfg,
		counter: counter,
		logger:  logging.GetLogger().WithFields(logging.String("component", "notify.publisher")),
	}
}

// PflanzeCreated 发布创建事件，失败时按指数退避重试
func (p *Publisher) PflanzeCreated(ctx context.Context, pf *pflanze.Pflanze) error {
	msg, err := messaging.NewMessage(TypeCreated, Created{ID: pf.ID, Name: pf.Name, CreatedAt: pf.CreatedAt})
	if err != nil {
		return err
	}
	msg.GetMetadata()[messaging.MetaSource] = "pflanze.service"

	cfg := p.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		p.logger.Debug(ctx, "retrying publish",
			logging.Int("attempt", attempt), logging.Duration("delay", delay), logging.Error(err))
	}
	err = retry.Do(ctx, func(ctx context.Context, _ int) error {
		return p.bus.Publish(ctx, msg)
	}, cfg)
	p.count(err)
	return err
}

func (p *Publisher) count(err error) {
	if p.counter == nil {
		return
	}
	if err != nil {
		p.counter.IncNotification("failed")
	} else {
		p.counter.IncNotification("sent")
	}
}
