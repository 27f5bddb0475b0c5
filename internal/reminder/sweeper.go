package reminder

import (
	"context"
	"time"

	"clinic-app-server/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepLockKey is the fixed leader-lock key; only one sweep may run at a
// time across all instances.
const sweepLockKey = "reminders:sweep"

// sweepLockTTL must comfortably exceed a normal sweep duration and stay
// under the cadence, so a crashed holder frees the lock before the next
// tick. The database claim is the hard double-send guard either way.
const sweepLockTTL = 9 * time.Minute

// Sweeper drains due reminder work items on a fixed cadence. Items in one
// sweep are processed strictly sequentially: the external channel is rate
// limited and a slow item must delay, not corrupt, the rest of the batch.
type Sweeper struct {
	store        Store
	appointments AppointmentReader
	gateway      *Gateway
	locker       Locker
	clock        Clock
	log          *zap.Logger
	batchSize    int
	cron         *cron.Cron
}

func NewSweeper(store Store, appointments AppointmentReader, gateway *Gateway, locker Locker, clock Clock, batchSize int, log *zap.Logger) *Sweeper {
	return &Sweeper{
		store:        store,
		appointments: appointments,
		gateway:      gateway,
		locker:       locker,
		clock:        clock,
		log:          log,
		batchSize:    batchSize,
	}
}

// Start schedules the sweep on the given cron spec (every 10 minutes by
// default). It is called once at process boot.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info("reminder sweeper started", zap.String("cron_spec", spec))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish, so no
// item is left in an ambiguous state at shutdown.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("reminder sweeper stopped")
}

// RunOnce executes a single sweep: claim a bounded batch of due items and
// drive each through delivery. Failures are terminal per item; there is no
// automatic retry, a fresh scheduler recomputation is the only way to get
// another attempt.
func (s *Sweeper) RunOnce(ctx context.Context) {
	acquired, token, err := s.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
	if err != nil {
		s.log.Warn("sweep lock attempt failed", zap.Error(err))
		return
	}
	if !acquired {
		s.log.Info("sweep lock held elsewhere, skipping run")
		return
	}
	defer func() {
		if err := s.locker.Unlock(ctx, sweepLockKey, token); err != nil {
			s.log.Warn("sweep lock release failed", zap.Error(err))
		}
	}()

	now := s.clock.Now()
	batch, err := s.store.ClaimDueBatch(ctx, s.batchSize, now)
	if err != nil {
		s.log.Error("claiming due reminders failed", zap.Error(err))
		return
	}
	if len(batch) == 0 {
		s.log.Debug("sweep heartbeat: no due reminders")
		return
	}

	s.log.Info("processing due reminders", zap.Int("count", len(batch)))
	for i := range batch {
		s.processItem(ctx, &batch[i])
	}
	s.log.Info("sweep complete", zap.Int("count", len(batch)))
}

// processItem drives one work item to a terminal state. Every failure path
// marks the item instead of propagating, so one bad item never aborts the
// batch.
func (s *Sweeper) processItem(ctx context.Context, item *models.AppointmentReminder) {
	appt, err := s.appointments.DueAppointment(ctx, item.AppointmentID)
	if err != nil {
		s.log.Error("resolving appointment for reminder failed",
			zap.String("reminder_id", item.ID),
			zap.String("appointment_id", item.AppointmentID),
			zap.Error(err),
		)
		s.markError(ctx, item)
		return
	}

	if appt.PatientPhone == "" || !IsValidRecipient(appt.PatientPhone) {
		s.log.Warn("patient phone missing or invalid, reminder skipped",
			zap.String("reminder_id", item.ID),
			zap.String("appointment_id", item.AppointmentID),
		)
		s.markError(ctx, item)
		return
	}

	if _, err := s.gateway.Send(ctx, *item, appt); err != nil {
		s.log.Error("reminder delivery failed",
			zap.String("reminder_id", item.ID),
			zap.String("appointment_id", item.AppointmentID),
			zap.Error(err),
		)
		s.markError(ctx, item)
		return
	}

	s.markSent(ctx, item)
}

func (s *Sweeper) markSent(ctx context.Context, item *models.AppointmentReminder) {
	if err := s.store.MarkSent(ctx, item.ID, s.clock.Now()); err != nil {
		s.log.Error("marking reminder sent failed",
			zap.String("reminder_id", item.ID), zap.Error(err))
	}
}

func (s *Sweeper) markError(ctx context.Context, item *models.AppointmentReminder) {
	if err := s.store.MarkError(ctx, item.ID, s.clock.Now()); err != nil {
		s.log.Error("marking reminder errored failed",
			zap.String("reminder_id", item.ID), zap.Error(err))
	}
}
