package scheduler

import "errors"

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrJobBusy предыдущий запуск задачи еще не закончился (в этом или другом процессе).
	ErrJobBusy = errors.New("job is already running")
)
