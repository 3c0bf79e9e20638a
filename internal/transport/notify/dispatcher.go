package notify

import (
	"context"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/logger"
	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	DefaultQueueSize   = 1024
	defaultSendTimeout = 3 * time.Second
	defaultDrainTime   = 5 * time.Second
)

// Dispatcher очередь уведомлений с фоновой доставкой. Notify никогда не блокирует: при переполненной
// очереди уведомление отбрасывается с предупреждением в логе.
type Dispatcher struct {
	sinks []Sink
	queue chan domain.Notification
	l     *logrus.Entry
}

func NewDispatcher(l *logrus.Logger, size int, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		sinks: sinks,
		queue: make(chan domain.Notification, size),
		l:     logger.ForComponent(l, "notify", "dispatcher"),
	}
}

func (d *Dispatcher) Notify(_ context.Context, n domain.Notification) {
	select {
	case d.queue <- n:
	default:
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.l.WithFields(logrus.Fields{
			"id":     n.ID,
			"userID": n.UserID,
			"kind":   n.Kind,
		}).Warn("notification queue is full, dropping")
	}
}

// Run доставляет уведомления до отмены контекста. После отмены досылает то, что уже в очереди, но не
// дольше defaultDrainTime.
func (d *Dispatcher) Run(ctx context.Context) {
	d.l.WithField("sinks", len(d.sinks)).Info("Starting")
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			d.l.Info("Got stop signal, exiting...")
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(ctx, defaultDrainTime)
	defer cancel()
	for {
		select {
		case <-drainCtx.Done():
			if left := len(d.queue); left > 0 {
				d.l.WithField("left", left).Warn("drain timeout, notifications lost")
			}
			return
		case n := <-d.queue:
			d.deliver(drainCtx, n)
		default:
			return
		}
	}
}

// deliver отправляет уведомление во все каналы. Ошибка одного канала не мешает остальным.
func (d *Dispatcher) deliver(ctx context.Context, n domain.Notification) {
	result := "sent"
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, defaultSendTimeout)
		err := sink.Send(sendCtx, n)
		cancel()
		if err != nil {
			result = "failed"
			d.l.WithError(err).WithFields(logrus.Fields{
				"id":   n.ID,
				"kind": n.Kind,
			}).Error("send notification")
		}
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Kind), result).Inc()
}
