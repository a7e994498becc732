package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Start runs job on a standard 5-field cron schedule (minute hour
// day-of-month month day-of-week) until ctx is cancelled.
// Examples: "*/5 * * * *" (every five minutes), "0 9 * * 1-5" (weekdays 9am).
func Start(ctx context.Context, name, schedule string, loc *time.Location, job func(context.Context)) error {
	schedule = strings.TrimSpace(schedule)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid %s schedule '%s': %w", name, schedule, err)
	}
	if loc == nil {
		loc = time.Local
	}
	log.Printf("%s scheduled (cron: %s)", name, schedule)

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next %s at %s (in %s)", name, next.Format("Mon Jan 2 15:04"), wait.Round(time.Second))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Printf("%s scheduler stopped", name)
				return
			case <-timer.C:
			}
			job(ctx)
		}
	}()
	return nil
}
