package schedjobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zeptools/fieldticket/svc"
)

// Scheduler runs cron jobs and one-time jobs at minute resolution
type Scheduler struct {
	oneTimeJobs map[int64][]*OneTimeJob
	cronJobs    []*CronJob
	mu          sync.Mutex
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan error
	// Default Callbacks
	OnOneTimeJobAdded    func(job *OneTimeJob)
	OnCronJobAdded       func(job *CronJob)
	OnOneTimeJobFinished func(job *OneTimeJob, err error)
	OnCronJobFinished    func(job *CronJob, err error)
	OnOneTimeJobDeleted  func(job *OneTimeJob)
	OnCronJobDeleted     func(job *CronJob)
}

var _ svc.Service = (*Scheduler)(nil)

func NewScheduler() *Scheduler {
	return &Scheduler{
		oneTimeJobs: make(map[int64][]*OneTimeJob),
		cronJobs:    []*CronJob{},
		done:        make(chan error, 1),
	}
}

func (s *Scheduler) Name() string {
	return "JobScheduler"
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("job scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	go s.loop(s.ctx)
	log.Println("[INFO] job scheduler started")
	return nil
}

// Stop cancels the scheduler context and waits for running tasks
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		log.Println("[ERROR] job scheduler not running")
		return
	}
	cancel()
	s.wg.Wait()
	log.Println("[INFO] job scheduler stopped")
	s.done <- nil
}

func (s *Scheduler) Done() <-chan error {
	return s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	// align ticks to the minute boundary
	select {
	case <-time.After(time.Until(time.Now().Truncate(time.Minute).Add(time.Minute))):
	case <-ctx.Done():
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		s.Tick(time.Now())
		select {
		case <-ticker.C:
			// continue for-loop
		case <-ctx.Done():
			return
		}
	}
}

// Tick launches every job due at now
func (s *Scheduler) Tick(now time.Time) {
	s.runOneTimeJobs(now)
	s.runCronJobs(now)
}

// Wait blocks until launched tasks finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runOneTimeJobs(now time.Time) {
	key := now.Unix() / 60
	s.mu.Lock()
	jobs := s.oneTimeJobs[key]
	delete(s.oneTimeJobs, key)
	s.mu.Unlock()
	for _, job := range jobs {
		s.launch(job.ID, job.Task, func(err error) {
			if job.OnFinished != nil {
				job.OnFinished(err)
			}
			if s.OnOneTimeJobFinished != nil {
				s.OnOneTimeJobFinished(job, err)
			}
		})
	}
}

func (s *Scheduler) runCronJobs(now time.Time) {
	s.mu.Lock()
	jobs := append([]*CronJob(nil), s.cronJobs...) // copy jobs so unlocking early is possible
	s.mu.Unlock()
	for _, job := range jobs {
		if !job.Matches(now) {
			continue
		}
		s.launch(job.ID, job.Task, func(err error) {
			if job.OnFinished != nil {
				job.OnFinished(err)
			}
			if s.OnCronJobFinished != nil {
				s.OnCronJobFinished(job, err)
			}
		})
	}
}

func (s *Scheduler) launch(id string, task Task, finished func(error)) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background() // ticked manually without Start
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] Recovered in job %s: %v", id, r)
			}
		}()
		var err error
		if task != nil {
			err = task(ctx)
		}
		if err != nil {
			log.Printf("[ERROR] job %s: %v", id, err)
		}
		finished(err)
	}()
}

func (s *Scheduler) AddOneTimeJob(job *OneTimeJob) error {
	now := time.Now()
	margin := 30 * time.Second
	if job.ExecTime.Before(now.Add(margin)) {
		return fmt.Errorf(
			"cannot schedule job %s too close or in the past (ExecTime: %s, now: %s)",
			job.ID, job.ExecTime, now,
		)
	}
	// Round up to the next minute if ExecTime has seconds/nanoseconds
	regTime := job.ExecTime
	if regTime.Second() > 0 || regTime.Nanosecond() > 0 {
		regTime = regTime.Truncate(time.Minute).Add(time.Minute)
	}
	key := regTime.Unix() / 60
	s.mu.Lock()
	s.oneTimeJobs[key] = append(s.oneTimeJobs[key], job)
	s.mu.Unlock()
	if job.OnAdded != nil { // Job-specific callback
		safeCall("job.OnAdded", job.OnAdded)
	}
	if s.OnOneTimeJobAdded != nil { // Scheduler-level default callback
		s.OnOneTimeJobAdded(job)
	}
	return nil
}

func (s *Scheduler) AddCronJob(job *CronJob) {
	s.mu.Lock()
	s.cronJobs = append(s.cronJobs, job)
	s.mu.Unlock()
	if job.OnAdded != nil {
		safeCall("job.OnAdded", job.OnAdded)
	}
	if s.OnCronJobAdded != nil {
		s.OnCronJobAdded(job)
	}
}

func safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC] Recovered in %s: %v", what, r)
		}
	}()
	fn()
}

// GetOneTimeJobs returns a copy of all pending one-time jobs, keyed by their scheduled minute-level timestamp.
func (s *Scheduler) GetOneTimeJobs() map[int64][]*OneTimeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[int64][]*OneTimeJob, len(s.oneTimeJobs))
	for key, jobs := range s.oneTimeJobs {
		result[key] = append([]*OneTimeJob(nil), jobs...)
	}
	return result
}

// GetCronJobs returns a copy of all registered cron jobs
func (s *Scheduler) GetCronJobs() []*CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*CronJob(nil), s.cronJobs...)
}

// CronJob finds a registered cron job by its ID
func (s *Scheduler) CronJob(jobID string) (*CronJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.cronJobs {
		if job.ID == jobID {
			return job, true
		}
	}
	return nil, false
}

func (s *Scheduler) DeleteOneTimeJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, jobs := range s.oneTimeJobs {
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.ID == jobID {
				if s.OnOneTimeJobDeleted != nil {
					s.OnOneTimeJobDeleted(job)
				}
			} else {
				filtered = append(filtered, job)
			}
		}
		if len(filtered) == 0 {
			delete(s.oneTimeJobs, key)
		} else {
			s.oneTimeJobs[key] = filtered
		}
	}
}

// DeleteCronJob removes a cron job by its ID
func (s *Scheduler) DeleteCronJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newJobs := s.cronJobs[:0] // reuse underlying array
	for _, job := range s.cronJobs {
		if job.ID != jobID {
			newJobs = append(newJobs, job)
		} else if s.OnCronJobDeleted != nil {
			s.OnCronJobDeleted(job)
		}
	}
	s.cronJobs = newJobs
}
