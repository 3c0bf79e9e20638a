package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/scheduler/mocks"
	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type SchedulerTestSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockReminders *mocks.MockReminderServicer
	mockReleases  *mocks.MockReleaseServicer
	mockLocker    *mocks.MockLocker
	scheduler     *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (s *SchedulerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockReminders = mocks.NewMockReminderServicer(s.ctrl)
	s.mockReleases = mocks.NewMockReleaseServicer(s.ctrl)
	s.mockLocker = mocks.NewMockLocker(s.ctrl)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s.scheduler = New(s.mockReminders, s.mockReleases, logger)
}

func (s *SchedulerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

var deliveredBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals

// orders заказы, доставленные с интервалом в минуту в порядке id.
func orders(ids ...int64) []domain.Order {
	res := make([]domain.Order, len(ids))
	for i, id := range ids {
		delivered := deliveredBase.Add(time.Duration(id) * time.Minute)
		res[i] = domain.Order{ID: id, DeliveredAt: &delivered}
	}
	return res
}

func cursorAt(id int64) domain.OrderCursor {
	return domain.CursorAt(orders(id)[0])
}

// TestRunAutoRelease_ContinuesPastFailures ошибка по одному заказу не прерывает проход.
func (s *SchedulerTestSuite) TestRunAutoRelease_ContinuesPastFailures() {
	s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), domain.OrderCursor{}, defaultBatchSize).
		Return(orders(1, 2, 3), nil)
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(1)).
		Return(&service.ReleaseResult{Payout: 9500, Commission: 500}, nil)
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(2)).
		Return(nil, fmt.Errorf("releasing: %w", domain.ErrTransientStore))
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(3)).
		Return(nil, domain.NewTransitionError(domain.OpRelease, domain.OrderStatusCompleted))

	report, err := s.scheduler.RunAutoRelease(s.T().Context())
	s.Require().NoError(err)
	s.Equal(Report{Job: JobAutoRelease, Processed: 3, Succeeded: 1, Skipped: 1, Failed: 1}, report)
}

func (s *SchedulerTestSuite) TestRunAutoRelease_CandidatesError() {
	s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db is down"))
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.scheduler.RunAutoRelease(s.T().Context())
	s.Require().Error(err)

	// флаг задачи снят, следующий запуск возможен.
	s.False(s.scheduler.releaseBusy.Load())
}

// TestRunReminders_LadderOrder шаги проходятся по порядку, каждый своим запросом.
func (s *SchedulerTestSuite) TestRunReminders_LadderOrder() {
	gomock.InOrder(
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder1, gomock.Any(), defaultBatchSize).
			Return(orders(10), nil),
		s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(10), domain.Reminder1).Return(true, nil),
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder2, gomock.Any(), defaultBatchSize).
			Return(orders(11), nil),
		s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(11), domain.Reminder2).Return(false, nil),
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.ReminderFinal, gomock.Any(), defaultBatchSize).
			Return(orders(12), nil),
		s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(12), domain.ReminderFinal).
			Return(false, errors.New("boom")),
	)

	report, err := s.scheduler.RunReminders(s.T().Context())
	s.Require().NoError(err)
	s.Equal(Report{Job: JobReminders, Processed: 3, Succeeded: 1, Skipped: 1, Failed: 1}, report)
}

// TestRunReminders_Pages полная страница с продвижением запрашивает следующую.
func (s *SchedulerTestSuite) TestRunReminders_Pages() {
	s.scheduler.SetBatchSize(2)

	gomock.InOrder(
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder1, domain.OrderCursor{}, uint(2)).
			Return(orders(1, 2), nil),
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder1, cursorAt(2), uint(2)).
			Return(orders(3), nil),
	)
	s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), gomock.Any(), domain.Reminder1).Return(true, nil).Times(3)
	s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder2, domain.OrderCursor{}, uint(2)).
		Return(nil, nil)
	s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.ReminderFinal, domain.OrderCursor{}, uint(2)).
		Return(nil, nil)

	report, err := s.scheduler.RunReminders(s.T().Context())
	s.Require().NoError(err)
	s.Equal(3, report.Succeeded)
}

// TestRunReminders_FailedPageDoesNotBlock страница из одних ошибок не останавливает проход:
// следующая страница запрашивается после последнего обработанного заказа.
func (s *SchedulerTestSuite) TestRunReminders_FailedPageDoesNotBlock() {
	s.scheduler.SetBatchSize(2)

	gomock.InOrder(
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder1, domain.OrderCursor{}, uint(2)).
			Return(orders(1, 2), nil),
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder1, cursorAt(2), uint(2)).
			Return(orders(3), nil),
	)
	s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(1), domain.Reminder1).
		Return(false, errors.New("timeout"))
	s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(2), domain.Reminder1).
		Return(false, errors.New("timeout"))
	s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(3), domain.Reminder1).Return(true, nil)
	s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder2, gomock.Any(), uint(2)).Return(nil, nil)
	s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.ReminderFinal, gomock.Any(), uint(2)).
		Return(nil, nil)

	report, err := s.scheduler.RunReminders(s.T().Context())
	s.Require().NoError(err)
	s.Equal(2, report.Failed)
	s.Equal(1, report.Succeeded)
}

// TestRunAutoRelease_FailingOrderDoesNotStarveQueue страница в один заказ: заказ, выплата по которому
// всегда падает, не мешает выплатить следующие.
func (s *SchedulerTestSuite) TestRunAutoRelease_FailingOrderDoesNotStarveQueue() {
	s.scheduler.SetBatchSize(1)

	gomock.InOrder(
		s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), domain.OrderCursor{}, uint(1)).
			Return(orders(1), nil),
		s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), cursorAt(1), uint(1)).
			Return(orders(2), nil),
		s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), cursorAt(2), uint(1)).
			Return(orders(3), nil),
		s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), cursorAt(3), uint(1)).
			Return(nil, nil),
	)
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(1)).
		Return(nil, fmt.Errorf("wallet of user 7: %w", domain.ErrRecordNotFound))
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(2)).Return(&service.ReleaseResult{Payout: 95}, nil)
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(3)).Return(&service.ReleaseResult{Payout: 95}, nil)

	report, err := s.scheduler.RunAutoRelease(s.T().Context())
	s.Require().NoError(err)
	s.Equal(Report{Job: JobAutoRelease, Processed: 3, Succeeded: 2, Failed: 1}, report)
}

func (s *SchedulerTestSuite) TestOverlapSuppressed() {
	s.scheduler.reminderBusy.Store(true)
	s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.scheduler.RunReminders(s.T().Context())
	s.Require().ErrorIs(err, ErrJobBusy)
	s.True(s.scheduler.reminderBusy.Load())
}

func (s *SchedulerTestSuite) TestDistributedLock() {
	s.scheduler.SetLocker(s.mockLocker, time.Minute)

	s.Run("held by another process", func() {
		s.mockLocker.EXPECT().TryLock(gomock.Any(), "escrow:scheduler:auto_release", time.Minute).
			Return(nil, false, nil)
		s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := s.scheduler.RunAutoRelease(s.T().Context())
		s.Require().ErrorIs(err, ErrJobBusy)
	})

	s.Run("lock store unavailable", func() {
		s.mockLocker.EXPECT().TryLock(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, false, errors.New("connection refused"))

		_, err := s.scheduler.RunAutoRelease(s.T().Context())
		s.Require().Error(err)
		s.NotErrorIs(err, ErrJobBusy)
	})

	s.Run("released after panic", func() {
		var unlocked bool
		s.mockLocker.EXPECT().TryLock(gomock.Any(), "escrow:scheduler:reminders", time.Minute).
			Return(func(context.Context) { unlocked = true }, true, nil)
		s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), domain.Reminder1, gomock.Any(), gomock.Any()).
			Return(orders(1), nil)
		s.mockReminders.EXPECT().AdvanceReminder(gomock.Any(), int64(1), domain.Reminder1).
			DoAndReturn(func(context.Context, int64, domain.ReminderStep) (bool, error) {
				panic("nil map")
			})

		_, err := s.scheduler.RunReminders(s.T().Context())
		s.Require().ErrorContains(err, "panic")
		s.True(unlocked)
		s.False(s.scheduler.reminderBusy.Load())
	})
}

func (s *SchedulerTestSuite) TestRunInterruptedBetweenOrders() {
	ctx, cancel := context.WithCancel(s.T().Context())

	s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), gomock.Any(), gomock.Any()).Return(orders(1, 2), nil)
	s.mockReleases.EXPECT().AutoRelease(gomock.Any(), int64(1)).
		DoAndReturn(func(c context.Context, _ int64) (*service.ReleaseResult, error) {
			cancel()
			// начатая выплата доводится до конца.
			s.NoError(c.Err())
			return &service.ReleaseResult{Payout: 1}, nil
		})

	report, err := s.scheduler.RunAutoRelease(ctx)
	s.Require().ErrorIs(err, context.Canceled)
	s.Equal(1, report.Processed)
}

func (s *SchedulerTestSuite) TestStartStop() {
	s.mockReminders.EXPECT().ReminderCandidates(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).AnyTimes()
	s.mockReleases.EXPECT().AutoReleaseCandidates(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	s.scheduler.SetReminderInterval(10 * time.Millisecond).SetAutoReleaseInterval(10 * time.Millisecond)
	s.Require().NoError(s.scheduler.Start(s.T().Context()))
	s.True(s.scheduler.Running())
	s.Require().ErrorIs(s.scheduler.Start(s.T().Context()), ErrAlreadyRunning)

	time.Sleep(50 * time.Millisecond)
	s.scheduler.Stop()
	s.False(s.scheduler.Running())
	s.scheduler.Stop()

	// после остановки планировщик можно запустить снова.
	s.Require().NoError(s.scheduler.Start(s.T().Context()))
	s.scheduler.Stop()
}

func (s *SchedulerTestSuite) TestJitter() {
	for range 100 {
		d := nextTick(time.Hour)
		s.GreaterOrEqual(d, 54*time.Minute)
		s.LessOrEqual(d, 66*time.Minute)
	}
	v := jitter(100, -1, 0)
	s.InDelta(100, v, 15)
}
