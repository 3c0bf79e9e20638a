// Package enrichment обогащает заказы метаданными внешнего сервиса аннотаций. Работает после коммита
// заказа и никогда не влияет на сам заказ.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/logger"
	"github.com/fsdevblog/escrow-ledger/internal/metrics"
	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/fsdevblog/escrow-ledger/internal/transport/enrichment/client"
	"github.com/sirupsen/logrus"
)

const (
	DefaultQueueSize            = 256
	defaultWorkers         uint = 2
	defaultMaxAttempts     uint = 3
	defaultServiceTimeout       = 3 * time.Second
	defaultAPITimeout           = 10 * time.Second
	minDescriptionLen           = 5
)

var ErrTooManyAttempts = errors.New("too many attempts")

// Queue ограниченная очередь id заказов на обогащение и пул воркеров, который ее разбирает.
type Queue struct {
	client      Client
	tasks       chan int64
	l           *logrus.Entry
	workers     uint
	maxAttempts uint
}

// New создает очередь с HTTP клиентом сервиса аннотаций по адресу apiBaseURL.
func New(apiBaseURL string, size int, l *logrus.Logger) *Queue {
	return newQueue(client.New(apiBaseURL), size, l)
}

func newQueue(c Client, size int, l *logrus.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		client:      c,
		tasks:       make(chan int64, size),
		l:           logger.ForComponent(l, "enrichment", "queue"),
		workers:     defaultWorkers,
		maxAttempts: defaultMaxAttempts,
	}
}

// SetWorkers устанавливает кол-во воркеров.
func (q *Queue) SetWorkers(workers uint) *Queue {
	if workers > 0 {
		q.workers = workers
	}
	return q
}

// SetMaxAttempts кол-во попыток запроса к API при ответах 429.
func (q *Queue) SetMaxAttempts(attempts uint) *Queue {
	if attempts > 0 {
		q.maxAttempts = attempts
	}
	return q
}

// Enqueue ставит заказ в очередь. Не блокирует: при заполненной очереди заказ отбрасывается.
func (q *Queue) Enqueue(orderID int64) bool {
	select {
	case q.tasks <- orderID:
		return true
	default:
		metrics.EnrichmentTotal.WithLabelValues("dropped").Inc()
		q.l.WithField("orderID", orderID).Warn("enrichment queue is full, order dropped")
		return false
	}
}

// Run запускает воркеров и блокируется до отмены контекста.
func (q *Queue) Run(ctx context.Context, svs Servicer) {
	q.l.WithField("workers", q.workers).Info("Starting")

	wg := new(sync.WaitGroup)
	for i := range q.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker(ctx, svs, i+1)
		}()
	}
	wg.Wait()

	q.l.Info("Got stop signal, exiting...")
}

func (q *Queue) worker(ctx context.Context, svs Servicer, workerID uint) {
	for {
		select {
		case <-ctx.Done():
			return
		case orderID := <-q.tasks:
			l := q.l.WithFields(logrus.Fields{"worker": workerID, "orderID": orderID})
			result, err := q.process(ctx, svs, orderID)
			metrics.EnrichmentTotal.WithLabelValues(result).Inc()
			if err != nil {
				l.WithError(err).Error("enrich order")
				continue
			}
			l.WithField("result", result).Debug("order processed")
		}
	}
}

// process обогащает один заказ. Возвращает метку результата для метрики.
func (q *Queue) process(ctx context.Context, svs Servicer, orderID int64) (string, error) {
	descCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	text, err := svs.ProblemDescription(descCtx, orderID)
	cancel()
	if err != nil {
		return "failed", fmt.Errorf("getting description: %w", err)
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minDescriptionLen {
		return "skipped", nil
	}

	resp, err := q.annotate(ctx, text)
	if err != nil {
		return "failed", err
	}

	// сохранение не прерываем остановкой: ответ уже получен.
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), defaultServiceTimeout)
	defer saveCancel()

	if err := svs.AttachEnrichment(saveCtx, orderID, service.Enrichment{
		Title:    resp.Title,
		Category: resp.Category,
		Tags:     resp.Tags,
	}); err != nil {
		return "failed", fmt.Errorf("attaching enrichment: %w", err)
	}
	return "ok", nil
}

// annotate запрос к API. В случае 429 ждет паузу из Retry-After и повторяет, не более maxAttempts раз.
func (q *Queue) annotate(ctx context.Context, text string) (*client.Response, error) {
	for attempt := uint(1); ; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, defaultAPITimeout)
		resp, err := q.client.Annotate(reqCtx, text)
		cancel()
		if err == nil {
			return resp, nil
		}

		var tooManyReq *client.TooManyRequestError
		if !errors.As(err, &tooManyReq) {
			return nil, fmt.Errorf("annotate: %w", err)
		}
		if attempt >= q.maxAttempts {
			return nil, fmt.Errorf("annotate after %d attempts: %w", attempt, ErrTooManyAttempts)
		}

		timer := time.NewTimer(tooManyReq.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err() //nolint:wrapcheck
		case <-timer.C:
		}
	}
}
