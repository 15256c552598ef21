package reminders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zeptools/fieldticket/db/kvdb"
	"github.com/zeptools/fieldticket/schedjobs"
)

const (
	JobID = "timesheet-reminders"
	// SentTTL keeps a sent marker long enough to cover the rest of the day
	SentTTL = 24 * time.Hour
)

type Employee struct {
	ID        int64
	Name      string
	PushToken string
}

func (e *Employee) TargetFields() []any {
	return []any{&e.ID, &e.Name, &e.PushToken}
}

type Store interface {
	// Pending lists the employees that need a reminder of kind on day
	Pending(ctx context.Context, kind string, day time.Time) ([]*Employee, error)
}

type Notification struct {
	To         string `json:"to"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Kind       string `json:"kind"`
	EmployeeID int64  `json:"employee_id"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Job struct {
	App      string // key prefix
	Windows  []Window
	Location *time.Location
	Store    Store
	KV       kvdb.Handle
	Notifier Notifier
}

// Run sends the reminders due at now and returns how many went out.
// Each employee gets at most one reminder per kind and day
func (j *Job) Run(ctx context.Context, now time.Time) (int, error) {
	if j.Location != nil {
		now = now.In(j.Location)
	}
	w, ok := WindowAt(j.Windows, now)
	if !ok {
		return 0, nil
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	employees, err := j.Store.Pending(ctx, w.Kind, day)
	if err != nil {
		return 0, fmt.Errorf("pending %s: %w", w.Kind, err)
	}
	sent := 0
	var errs []error
	for _, e := range employees {
		key := j.sentKey(w.Kind, day, e.ID)
		fresh, err := j.KV.SetIfAbsent(ctx, key, now.Unix(), SentTTL)
		if err != nil {
			errs = append(errs, fmt.Errorf("mark %s: %w", key, err))
			continue
		}
		if !fresh {
			continue // already reminded
		}
		err = j.Notifier.Notify(ctx, Notification{
			To:         e.PushToken,
			Title:      w.Title,
			Body:       w.Body,
			Kind:       w.Kind,
			EmployeeID: e.ID,
		})
		if err != nil {
			// release the marker so the next tick retries
			if _, delErr := j.KV.Delete(ctx, key); delErr != nil {
				log.Printf("[WARN][REMIND] failed to release %s: %v", key, delErr)
			}
			errs = append(errs, fmt.Errorf("notify employee %d: %w", e.ID, err))
			continue
		}
		sent++
	}
	log.Printf("[INFO][REMIND] %s: %d pending, %d sent", w.Kind, len(employees), sent)
	return sent, errors.Join(errs...)
}

func (j *Job) sentKey(kind string, day time.Time, employeeID int64) string {
	return fmt.Sprintf("%s_remind:%s:%s:%d", j.App, kind, day.Format(time.DateOnly), employeeID)
}

// CronJob registers Run on the scheduler every interval minutes
func (j *Job) CronJob(intervalMin int) *schedjobs.CronJob {
	return schedjobs.NewIntervalCronJob(JobID, intervalMin, func(ctx context.Context) error {
		_, err := j.Run(ctx, time.Now())
		return err
	})
}
