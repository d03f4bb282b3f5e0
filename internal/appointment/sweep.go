package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// today is the current calendar date in the configured zone.
func (s *Service) today() time.Time {
	return DayOf(s.now().In(s.loc))
}

// SendTodayReminders notifies owners of today's appointments once. Each
// appointment's flag is claimed before its reminder is written, so overlapping
// or repeated runs send nothing twice. A failure on one appointment is logged
// and the rest of the batch still runs.
func (s *Service) SendTodayReminders(ctx context.Context) (SweepResult, error) {
	day := s.today()
	res := SweepResult{Day: FormatDay(day)}
	log := s.log.WithComponent("reminder").WithField("sweep", "today").WithField("day", res.Day)

	due, err := s.repo.FindUnsentForDay(ctx, day)
	if err != nil {
		return res, fmt.Errorf("find reminders due: %w", err)
	}
	res.Scanned = len(due)

	for _, appt := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		claimed, err := s.repo.ClaimReminder(ctx, appt.ID)
		if err != nil {
			log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to claim reminder")
			res.Failed++
			continue
		}
		if !claimed {
			res.Skipped++
			continue
		}

		n := todayNotice(appt.DepartmentName)
		deptID := appt.DepartmentID
		rec := &Notification{UserID: appt.UserID, Title: n.Title, Message: n.Message, DepartmentID: &deptID}
		if err := s.repo.InsertNotification(ctx, rec); err != nil {
			log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to write reminder")
			res.Failed++
			if err := s.repo.ReleaseReminder(ctx, appt.ID); err != nil {
				log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to release reminder claim")
			}
			continue
		}
		res.Sent++
	}

	log.WithField("scanned", res.Scanned).WithField("sent", res.Sent).
		WithField("skipped", res.Skipped).WithField("failed", res.Failed).Info("reminder sweep finished")
	return res, nil
}

func tomorrowMarkKey(id uuid.UUID, day time.Time) string {
	return fmt.Sprintf("reminder:tomorrow:%s:%s", id, FormatDay(day))
}

// SendTomorrowReminders tells owners of tomorrow's appointments about them.
// A Redis marker per appointment and day keeps repeated runs from resending.
func (s *Service) SendTomorrowReminders(ctx context.Context) (SweepResult, error) {
	day := s.today().AddDate(0, 0, 1)
	res := SweepResult{Day: FormatDay(day)}
	log := s.log.WithComponent("reminder").WithField("sweep", "tomorrow").WithField("day", res.Day)

	appts, err := s.repo.FindForDay(ctx, day)
	if err != nil {
		return res, fmt.Errorf("find tomorrow's appointments: %w", err)
	}
	res.Scanned = len(appts)

	for _, appt := range appts {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := tomorrowMarkKey(appt.ID, day)
		first, err := s.marker.MarkOnce(ctx, key, s.cfg.ReminderMarkTTL)
		if err != nil {
			log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to mark reminder")
			res.Failed++
			continue
		}
		if !first {
			res.Skipped++
			continue
		}

		n := tomorrowNotice(appt.DepartmentName, appt)
		deptID := appt.DepartmentID
		rec := &Notification{UserID: appt.UserID, Title: n.Title, Message: n.Message, DepartmentID: &deptID}
		if err := s.repo.InsertNotification(ctx, rec); err != nil {
			log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to write reminder")
			res.Failed++
			if err := s.marker.Unmark(ctx, key); err != nil {
				log.WithError(err).WithField("appointment_id", appt.ID).Error("failed to clear reminder mark")
			}
			continue
		}
		res.Sent++
	}

	log.WithField("scanned", res.Scanned).WithField("sent", res.Sent).
		WithField("skipped", res.Skipped).WithField("failed", res.Failed).Info("reminder sweep finished")
	return res, nil
}
