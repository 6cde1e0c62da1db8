package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"clipflow/models"
)

var ErrQueueFull = errors.New("job queue is full")

// ProcessFunc handles one schedule entry end to end.
type ProcessFunc func(context.Context, *models.ScheduleEntry) error

// EntryQueue fans schedule entries out to a fixed pool of workers. Each
// submitted entry gets a result channel the caller can wait on.
type EntryQueue struct {
	jobs        chan *entryJob
	activeJobs  map[string]*entryJob
	workerCount int
	maxJobs     int
	mu          sync.Mutex
	quit        chan struct{}
	logger      *logrus.Logger
}

type entryJob struct {
	id         string
	entry      *models.ScheduleEntry
	ctx        context.Context
	cancelFunc context.CancelFunc
	result     chan error
	startTime  time.Time
}

func NewEntryQueue(workerCount, maxQueueSize int) *EntryQueue {
	return &EntryQueue{
		jobs:        make(chan *entryJob, maxQueueSize),
		activeJobs:  make(map[string]*entryJob),
		workerCount: workerCount,
		maxJobs:     maxQueueSize,
		quit:        make(chan struct{}),
		logger:      logrus.StandardLogger(),
	}
}

// Start launches the workers.
func (q *EntryQueue) Start(processFunc ProcessFunc) {
	for i := 0; i < q.workerCount; i++ {
		go q.worker(i, processFunc)
	}
	go q.monitorHungJobs()
}

// Submit queues one entry. The returned channel receives the processing
// error (or nil) exactly once.
func (q *EntryQueue) Submit(ctx context.Context, entry *models.ScheduleEntry) (<-chan error, error) {
	jobCtx, cancel := context.WithCancel(ctx)

	job := &entryJob{
		id:         entry.ID,
		entry:      entry,
		ctx:        jobCtx,
		cancelFunc: cancel,
		result:     make(chan error, 1),
		startTime:  time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) >= q.maxJobs {
		cancel()
		return nil, ErrQueueFull
	}

	q.activeJobs[job.id] = job
	q.jobs <- job

	return job.result, nil
}

// Cancel aborts a queued or running entry.
func (q *EntryQueue) Cancel(entryID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, exists := q.activeJobs[entryID]
	if !exists {
		return false
	}
	job.cancelFunc()
	return true
}

func (q *EntryQueue) worker(id int, processFunc ProcessFunc) {
	log := q.logger.WithField("worker_id", id)
	log.Debug("Starting worker")

	for {
		select {
		case <-q.quit:
			log.Debug("Worker shutting down")
			return
		case job := <-q.jobs:
			start := time.Now()
			err := processFunc(job.ctx, job.entry)
			duration := time.Since(start)

			entryLog := log.WithFields(logrus.Fields{
				"entry_id":    job.id,
				"duration_ms": duration.Milliseconds(),
			})
			if err != nil {
				entryLog.WithError(err).Error("Entry processing failed")
			} else {
				entryLog.Info("Entry processed")
			}

			job.result <- err

			q.mu.Lock()
			delete(q.activeJobs, job.id)
			q.mu.Unlock()
		}
	}
}

// Close stops the workers and cancels everything in flight.
func (q *EntryQueue) Close() {
	close(q.quit)

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.activeJobs {
		job.cancelFunc()
	}
}

func (q *EntryQueue) monitorHungJobs() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-q.quit:
			return
		case <-ticker.C:
			q.checkHungJobs()
		}
	}
}

func (q *EntryQueue) checkHungJobs() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	hungTimeout := 30 * time.Minute

	for id, job := range q.activeJobs {
		if now.Sub(job.startTime) > hungTimeout {
			q.logger.WithFields(logrus.Fields{
				"entry_id": id,
				"duration": now.Sub(job.startTime).String(),
			}).Warn("Found hung entry")
		}
	}
}
