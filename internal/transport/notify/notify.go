// Package notify доставка уведомлений о событиях заказа. Сервисы отдают уведомление в Dispatcher и не ждут
// доставки; Dispatcher рассылает его по каналам (лог, redis pub/sub) в фоне.
package notify

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/logger"
	"github.com/sirupsen/logrus"
)

// Sink канал доставки.
type Sink interface {
	Send(ctx context.Context, n domain.Notification) error
}

// LogSink пишет уведомление в лог. Используется, когда внешнего канала нет.
type LogSink struct {
	l *logrus.Entry
}

func NewLogSink(l *logrus.Logger) *LogSink {
	return &LogSink{l: logger.ForComponent(l, "notify", "log")}
}

func (s *LogSink) Send(_ context.Context, n domain.Notification) error {
	s.l.WithFields(logrus.Fields{
		"id":      n.ID,
		"userID":  n.UserID,
		"kind":    n.Kind,
		"payload": n.Payload,
	}).Info("notification")
	return nil
}
