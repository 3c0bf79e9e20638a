package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RunReminders один проход лестницы напоминаний. Шаги проходятся по порядку, поэтому заказ, простоявший
// дольше нескольких сроков (например, пока процесс не работал), за один проход догоняет нужный шаг.
// Ошибка по одному заказу логируется и не прерывает проход: выборка идет по курсору, и заказ с ошибкой
// не загораживает следующие за ним.
func (s *Scheduler) RunReminders(ctx context.Context) (Report, error) {
	return s.guard(ctx, JobReminders, &s.reminderBusy, func(ctx context.Context, r *Report) error {
		for _, rule := range domain.ReminderLadder {
			if err := s.remindStep(ctx, rule.Step, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Scheduler) remindStep(ctx context.Context, step domain.ReminderStep, r *Report) error {
	var cursor domain.OrderCursor
	for {
		orders, err := s.reminderCandidates(ctx, step, cursor)
		if err != nil {
			return err
		}
		for _, order := range orders {
			// прерывание только между заказами.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr //nolint:wrapcheck
			}
			r.Processed++
			cursor = domain.CursorAt(order)
			ok, advErr := s.advance(ctx, order.ID, step)
			switch {
			case advErr == nil && ok:
				r.Succeeded++
				metrics.SweepOrdersTotal.WithLabelValues(JobReminders, "advanced").Inc()
			case advErr == nil, errors.Is(advErr, domain.ErrStateConflict):
				// шаг уже пройден или заказ успел уйти из лестницы (выплата, спор).
				r.Skipped++
				metrics.SweepOrdersTotal.WithLabelValues(JobReminders, "skipped").Inc()
			default:
				r.Failed++
				metrics.SweepOrdersTotal.WithLabelValues(JobReminders, "failed").Inc()
				s.l.WithError(advErr).WithFields(logrus.Fields{
					"orderID": order.ID,
					"step":    step,
				}).Error("advance reminder")
			}
		}
		if uint(len(orders)) < s.batchSize {
			return nil
		}
	}
}

func (s *Scheduler) reminderCandidates(
	ctx context.Context,
	step domain.ReminderStep,
	after domain.OrderCursor,
) ([]domain.Order, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()
	orders, err := s.reminders.ReminderCandidates(reqCtx, step, after, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("reminder %d candidates: %w", step, err)
	}
	return orders, nil
}

func (s *Scheduler) advance(ctx context.Context, orderID int64, step domain.ReminderStep) (bool, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultServiceTimeout)
	defer cancel()
	return s.reminders.AdvanceReminder(reqCtx, orderID, step) //nolint:wrapcheck
}

// RunAutoRelease один проход автоматической выплаты: каждый заказ с истекшим сроком выплачивается
// отдельной транзакцией через тот же путь, что и ручное подтверждение клиентом. Заказ, выплаченный
// клиентом между выборкой и выплатой, дает ErrStateConflict и считается пропущенным. Заказ с ошибкой
// остается позади курсора и повторяется на следующем тике.
func (s *Scheduler) RunAutoRelease(ctx context.Context) (Report, error) {
	return s.guard(ctx, JobAutoRelease, &s.releaseBusy, func(ctx context.Context, r *Report) error {
		var cursor domain.OrderCursor
		for {
			orders, err := s.releaseCandidates(ctx, cursor)
			if err != nil {
				return err
			}
			for _, order := range orders {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr //nolint:wrapcheck
				}
				r.Processed++
				cursor = domain.CursorAt(order)
				l := s.l.WithField("orderID", order.ID)
				res, relErr := s.release(ctx, order.ID)
				switch {
				case relErr == nil:
					r.Succeeded++
					metrics.SweepOrdersTotal.WithLabelValues(JobAutoRelease, "released").Inc()
					l.WithFields(logrus.Fields{
						"payout":     res.Payout,
						"commission": res.Commission,
					}).Info("auto-released escrow")
				case errors.Is(relErr, domain.ErrStateConflict):
					r.Skipped++
					metrics.SweepOrdersTotal.WithLabelValues(JobAutoRelease, "skipped").Inc()
					l.WithError(relErr).Debug("order is no longer releasable")
				default:
					r.Failed++
					metrics.SweepOrdersTotal.WithLabelValues(JobAutoRelease, "failed").Inc()
					l.WithError(relErr).Error("auto release")
				}
			}
			if uint(len(orders)) < s.batchSize {
				return nil
			}
		}
	})
}

func (s *Scheduler) releaseCandidates(ctx context.Context, after domain.OrderCursor) ([]domain.Order, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()
	orders, err := s.releases.AutoReleaseCandidates(reqCtx, after, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("auto release candidates: %w", err)
	}
	return orders, nil
}

type releaseOutcome struct {
	Payout     int64
	Commission int64
}

// release выплата по одному заказу. Остановка планировщика не обрывает начатую выплату.
func (s *Scheduler) release(ctx context.Context, orderID int64) (*releaseOutcome, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultServiceTimeout)
	defer cancel()
	res, err := s.releases.AutoRelease(reqCtx, orderID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &releaseOutcome{Payout: res.Payout, Commission: res.Commission}, nil
}
