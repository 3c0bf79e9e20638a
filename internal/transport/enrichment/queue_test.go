package enrichment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/fsdevblog/escrow-ledger/internal/transport/enrichment/client"
	"github.com/fsdevblog/escrow-ledger/internal/transport/enrichment/mocks"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type QueueTestSuite struct {
	suite.Suite
	queue       *Queue
	mockClient  *mocks.MockClient
	mockService *mocks.MockServicer
	ctrl        *gomock.Controller
}

func (s *QueueTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockClient = mocks.NewMockClient(s.ctrl)
	s.mockService = mocks.NewMockServicer(s.ctrl)

	l := logrus.New()
	l.SetOutput(io.Discard)

	s.queue = newQueue(s.mockClient, 2, l)
}

func (s *QueueTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func (s *QueueTestSuite) TestProcess() {
	s.mockService.EXPECT().ProblemDescription(gomock.Any(), int64(7)).Return("leaking tap in the kitchen", nil)
	s.mockClient.EXPECT().Annotate(gomock.Any(), "leaking tap in the kitchen").Return(&client.Response{
		Title:    "Kitchen tap leak",
		Category: "PLOMBERIE",
		Tags:     []string{"tap", "kitchen"},
	}, nil)
	s.mockService.EXPECT().AttachEnrichment(gomock.Any(), int64(7), service.Enrichment{
		Title:    "Kitchen tap leak",
		Category: "PLOMBERIE",
		Tags:     []string{"tap", "kitchen"},
	}).Return(nil)

	result, err := s.queue.process(s.T().Context(), s.mockService, 7)
	s.Require().NoError(err)
	s.Equal("ok", result)
}

func (s *QueueTestSuite) TestProcessShortDescription() {
	s.mockService.EXPECT().ProblemDescription(gomock.Any(), int64(7)).Return("  tap ", nil)

	result, err := s.queue.process(s.T().Context(), s.mockService, 7)
	s.Require().NoError(err)
	s.Equal("skipped", result)
}

func (s *QueueTestSuite) TestProcessAPIError() {
	s.mockService.EXPECT().ProblemDescription(gomock.Any(), int64(7)).Return("leaking tap in the kitchen", nil)
	s.mockClient.EXPECT().Annotate(gomock.Any(), gomock.Any()).
		Return(nil, client.NewStatusCodeError(http.StatusInternalServerError))

	result, err := s.queue.process(s.T().Context(), s.mockService, 7)
	var statusErr *client.StatusCodeError
	s.Require().ErrorAs(err, &statusErr)
	s.Equal("failed", result)
}

func (s *QueueTestSuite) TestAnnotateRetriesOnTooManyRequests() {
	gomock.InOrder(
		s.mockClient.EXPECT().Annotate(gomock.Any(), "text").
			Return(nil, client.NewTooManyRequestError(10*time.Millisecond)),
		s.mockClient.EXPECT().Annotate(gomock.Any(), "text").
			Return(&client.Response{Title: "t", Category: "DIVERS"}, nil),
	)

	resp, err := s.queue.annotate(s.T().Context(), "text")
	s.Require().NoError(err)
	s.Equal("t", resp.Title)
}

func (s *QueueTestSuite) TestAnnotateGivesUp() {
	s.queue.SetMaxAttempts(2)
	s.mockClient.EXPECT().Annotate(gomock.Any(), "text").
		Return(nil, client.NewTooManyRequestError(time.Millisecond)).Times(2)

	_, err := s.queue.annotate(s.T().Context(), "text")
	s.Require().ErrorIs(err, ErrTooManyAttempts)
}

func (s *QueueTestSuite) TestAnnotateStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.T().Context())
	s.mockClient.EXPECT().Annotate(gomock.Any(), "text").
		DoAndReturn(func(context.Context, string) (*client.Response, error) {
			cancel()
			return nil, client.NewTooManyRequestError(time.Minute)
		})

	_, err := s.queue.annotate(ctx, "text")
	s.Require().ErrorIs(err, context.Canceled)
}

func (s *QueueTestSuite) TestEnqueueDropsWhenFull() {
	s.True(s.queue.Enqueue(1))
	s.True(s.queue.Enqueue(2))
	s.False(s.queue.Enqueue(3))
}

func (s *QueueTestSuite) TestRunProcessesQueuedOrders() {
	done := make(chan int64, 2)

	s.mockService.EXPECT().ProblemDescription(gomock.Any(), gomock.Any()).
		Return("leaking tap in the kitchen", nil).Times(2)
	s.mockClient.EXPECT().Annotate(gomock.Any(), gomock.Any()).
		Return(&client.Response{Title: "Kitchen tap leak", Category: "PLOMBERIE"}, nil).Times(2)
	s.mockService.EXPECT().AttachEnrichment(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, orderID int64, _ service.Enrichment) error {
			done <- orderID
			return nil
		}).Times(2)

	s.Require().True(s.queue.Enqueue(1))
	s.Require().True(s.queue.Enqueue(2))

	ctx, cancel := context.WithCancel(s.T().Context())
	stopped := make(chan struct{})
	go func() {
		s.queue.Run(ctx, s.mockService)
		close(stopped)
	}()

	var got []int64
	for range 2 {
		select {
		case id := <-done:
			got = append(got, id)
		case <-time.After(time.Second):
			s.FailNow("order was not enriched in time")
		}
	}
	s.ElementsMatch([]int64{1, 2}, got)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.FailNow("queue did not stop")
	}
}

func (s *QueueTestSuite) TestDescriptionError() {
	s.mockService.EXPECT().ProblemDescription(gomock.Any(), int64(9)).Return("", errors.New("boom"))

	result, err := s.queue.process(s.T().Context(), s.mockService, 9)
	s.Require().Error(err)
	s.Equal("failed", result)
}
