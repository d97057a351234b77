// Package scheduler runs the batch jobs inside the server process.
package scheduler

import (
	"context"
	"log"
	"time"

	"rental-backend/internal/config"
	"rental-backend/internal/jobs"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Minute

// Job is one scheduled task.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) (jobs.Result, error)
}

// Jobs lists the batch jobs with their configured schedules.
func Jobs(cfg config.CronConfig, r *jobs.Runner, cleanup func(context.Context) (int64, error)) []Job {
	out := []Job{
		{Name: "LEASE-STATUS", Schedule: cfg.LeaseStatus, Run: r.UpdateLeaseStatuses},
		{Name: "REMINDERS", Schedule: cfg.Reminders, Run: r.SendReminders},
		{Name: "RENEWALS", Schedule: cfg.Renewals, Run: r.ProcessRenewals},
	}
	if cleanup != nil {
		out = append(out, Job{Name: "OTP-CLEANUP", Schedule: "@hourly", Run: func(ctx context.Context) (jobs.Result, error) {
			n, err := cleanup(ctx)
			return jobs.Result{Changed: int(n)}, err
		}})
	}
	return out
}

func wrap(j Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		res, err := j.Run(ctx)
		if err != nil {
			log.Printf("[%s] failed after %s: %v", j.Name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("[%s] done in %s: %s", j.Name, time.Since(start).Round(time.Millisecond), res)
	}
}

// Start registers every job and starts the cron. A run that is still busy
// when its next tick arrives is skipped. Stop the returned cron on shutdown.
func Start(loc *time.Location, list []Job) (*cron.Cron, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	for _, j := range list {
		if _, err := c.AddFunc(j.Schedule, wrap(j)); err != nil {
			return nil, err
		}
		log.Printf("[SCHEDULER] %s scheduled %q", j.Name, j.Schedule)
	}
	c.Start()
	return c, nil
}
