// Package maintenance runs periodic database cleanup: purging revoked
// tokens that have expired anyway and expiring live call slots whose
// connection went away without releasing them.
package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/slot"
)

// Parser accepts standard 5-field expressions and descriptors like
// "@every 15m".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr parses.
func ValidateSchedule(expr string) error {
	if _, err := Parser.Parse(expr); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", expr, err)
	}
	return nil
}

// Result summarizes one sweep.
type Result struct {
	TokensPurged int64
	SlotsExpired int64
}

// Sweeper performs the cleanup.
type Sweeper struct {
	DB          *gorm.DB
	SlotTimeout time.Duration
	Now         func() time.Time
}

// Sweep runs every cleanup once.
func (s *Sweeper) Sweep() (Result, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	var res Result
	purged, err := auth.NewRevocations(s.DB).PurgeExpired(now())
	if err != nil {
		return res, fmt.Errorf("maintenance: purge tokens: %w", err)
	}
	res.TokensPurged = purged

	expired, err := slot.ExpireStale(s.DB, s.SlotTimeout)
	if err != nil {
		return res, fmt.Errorf("maintenance: expire slots: %w", err)
	}
	res.SlotsExpired = expired
	return res, nil
}

// Run sweeps on schedule until ctx is cancelled.
func Run(ctx context.Context, schedule string, s *Sweeper) error {
	sched, err := Parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithParser(Parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		res, err := s.Sweep()
		if err != nil {
			log.Printf("maintenance: %v", err)
			return
		}
		if res.TokensPurged > 0 || res.SlotsExpired > 0 {
			log.Printf("maintenance: purged %d revoked tokens, expired %d live slots", res.TokensPurged, res.SlotsExpired)
		}
	}))
	c.Start()
	log.Printf("maintenance: scheduled %q, next run %s", schedule, sched.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
