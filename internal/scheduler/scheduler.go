// Package scheduler периодические задачи эскроу: лестница напоминаний исполнителю и принудительная выплата
// по истечении срока подтверждения.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	JobReminders   = "reminders"
	JobAutoRelease = "auto_release"

	defaultInterval             = time.Hour
	defaultBatchSize       uint = 100
	defaultLockTTL              = 10 * time.Minute
	defaultServiceTimeout       = 3 * time.Second
	defaultUnlockTimeout        = time.Second
	lockKeyPrefix               = "escrow:scheduler:"
)

// Report итог одного прохода задачи.
type Report struct {
	Job       string
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
}

// Scheduler планировщик. Создается явно, запускается Start и останавливается Stop. RunReminders и
// RunAutoRelease можно вызывать напрямую: один проход без цикла.
type Scheduler struct {
	reminders ReminderServicer
	releases  ReleaseServicer
	locker    Locker
	l         *logrus.Entry

	reminderInterval    time.Duration
	autoReleaseInterval time.Duration
	batchSize           uint
	lockTTL             time.Duration

	// флаги подавляют наложение запусков одной задачи внутри процесса.
	reminderBusy atomic.Bool
	releaseBusy  atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int32
}

func New(reminders ReminderServicer, releases ReleaseServicer, l *logrus.Logger) *Scheduler {
	return &Scheduler{
		reminders: reminders,
		releases:  releases,
		l: l.WithFields(logrus.Fields{
			"component": "scheduler",
			"module":    "escrow",
		}),
		reminderInterval:    defaultInterval,
		autoReleaseInterval: defaultInterval,
		batchSize:           defaultBatchSize,
		lockTTL:             defaultLockTTL,
	}
}

// SetReminderInterval устанавливает период прохода лестницы напоминаний.
func (s *Scheduler) SetReminderInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.reminderInterval = d
	}
	return s
}

// SetAutoReleaseInterval устанавливает период прохода автоматической выплаты.
func (s *Scheduler) SetAutoReleaseInterval(d time.Duration) *Scheduler {
	if d > 0 {
		s.autoReleaseInterval = d
	}
	return s
}

// SetBatchSize устанавливает кол-во заказов, выбираемых за один запрос к хранилищу.
func (s *Scheduler) SetBatchSize(n uint) *Scheduler {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// SetLocker включает блокировку задач между процессами. ttl - время жизни блокировки на случай падения
// процесса посреди прохода.
func (s *Scheduler) SetLocker(locker Locker, ttl time.Duration) *Scheduler {
	s.locker = locker
	if ttl > 0 {
		s.lockTTL = ttl
	}
	return s
}

// Start запускает обе задачи в фоне. Первый проход выполняется сразу, дальше - с периодом задачи
// с разбросом в 10%. Повторный Start без Stop возвращает ErrAlreadyRunning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.l.WithFields(logrus.Fields{
		"reminderInterval":    s.reminderInterval.String(),
		"autoReleaseInterval": s.autoReleaseInterval.String(),
		"batchSize":           s.batchSize,
		"distributedLock":     s.locker != nil,
	}).Info("Starting")

	s.active.Add(2) //nolint:mnd
	s.wg.Add(2)     //nolint:mnd
	go s.loop(runCtx, JobReminders, s.reminderInterval, s.RunReminders)
	go s.loop(runCtx, JobAutoRelease, s.autoReleaseInterval, s.RunAutoRelease)
	return nil
}

// Stop останавливает задачи и дожидается завершения текущих проходов. Заказ, который обрабатывается в
// момент остановки, доводится до конца. Повторный вызов ничего не делает.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.wg.Wait()
	s.l.Info("Stopped")
}

// Running true, пока работает хотя бы один цикл задач.
func (s *Scheduler) Running() bool {
	return s.active.Load() > 0
}

type runFunc func(ctx context.Context) (Report, error)

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run runFunc) {
	defer s.wg.Done()
	defer s.active.Add(-1)

	l := s.l.WithField("job", name)
	s.tick(ctx, l, run)

	timer := time.NewTimer(nextTick(interval))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Info("Got stop signal, exiting...")
			return
		case <-timer.C:
			s.tick(ctx, l, run)
			timer.Reset(nextTick(interval))
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, l *logrus.Entry, run runFunc) {
	report, err := run(ctx)
	switch {
	case errors.Is(err, ErrJobBusy):
		l.Debug("previous run is still in progress, skipping")
	case errors.Is(err, context.Canceled):
		l.WithField("processed", report.Processed).Info("sweep interrupted")
	case err != nil:
		l.WithError(err).Error("sweep failed")
	case report.Processed > 0:
		l.WithFields(logrus.Fields{
			"processed": report.Processed,
			"succeeded": report.Succeeded,
			"skipped":   report.Skipped,
			"failed":    report.Failed,
		}).Info("sweep finished")
	}
}

// guard выполняет проход задачи name, если она не выполняется прямо сейчас.
//
// Алгоритм работы:
//  1. Флаг busy подавляет наложение внутри процесса, при занятом флаге - ErrJobBusy.
//  2. Если задан Locker, берется блокировка между процессами. Занята - ErrJobBusy, ошибка хранилища
//     блокировки - проход не выполняется, следующий тик попробует снова.
//  3. Паника внутри прохода перехватывается и возвращается ошибкой; блокировки освобождаются в любом случае.
func (s *Scheduler) guard(
	ctx context.Context,
	name string,
	busy *atomic.Bool,
	sweep func(ctx context.Context, r *Report) error,
) (report Report, err error) {
	report.Job = name
	if !busy.CompareAndSwap(false, true) {
		metrics.SweepRunsTotal.WithLabelValues(name, "skipped").Inc()
		return report, ErrJobBusy
	}
	defer busy.Store(false)

	if s.locker != nil {
		unlock, ok, lockErr := s.locker.TryLock(ctx, lockKeyPrefix+name, s.lockTTL)
		if lockErr != nil {
			metrics.SweepRunsTotal.WithLabelValues(name, "error").Inc()
			return report, fmt.Errorf("%s: acquiring lock: %w", name, lockErr)
		}
		if !ok {
			metrics.SweepRunsTotal.WithLabelValues(name, "skipped").Inc()
			return report, ErrJobBusy
		}
		defer func() {
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultUnlockTimeout)
			defer cancel()
			unlock(unlockCtx)
		}()
	}

	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic in sweep: %v", name, r)
			metrics.SweepRunsTotal.WithLabelValues(name, "panic").Inc()
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.SweepRunsTotal.WithLabelValues(name, outcome).Inc()
	}()

	err = sweep(ctx, &report)
	return report, err
}
