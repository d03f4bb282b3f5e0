package appointment

import "fmt"

const (
	TitleCompleted   = "Appointment Completed"
	TitleCancelled   = "Appointment Cancelled"
	TitleRescheduled = "Appointment Rescheduled"
	TitleDeleted     = "Appointment Deleted"
	TitleReminder    = "Appointment Reminder"
	TitleTomorrow    = "Appointment Tomorrow"
)

type notice struct {
	Title   string
	Message string
}

func departmentLabel(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func completedNotice(dept string, a Appointment) notice {
	return notice{
		Title:   TitleCompleted,
		Message: fmt.Sprintf("Your appointment with the %s Department last %s has been completed.", departmentLabel(dept), longDate(a.Date)),
	}
}

func cancelledNotice(title, dept string, a Appointment) notice {
	return notice{
		Title:   title,
		Message: fmt.Sprintf("Your appointment with the %s Department on %s has been cancelled.", departmentLabel(dept), longDate(a.Date)),
	}
}

func rescheduledNotice(dept string, a Appointment) notice {
	msg := fmt.Sprintf("Your appointment with the %s Department has been moved to %s", departmentLabel(dept), longDate(a.Date))
	if a.Time != "" {
		msg += " at " + a.Time
	}
	return notice{Title: TitleRescheduled, Message: msg + "."}
}

func todayNotice(dept string) notice {
	return notice{
		Title:   TitleReminder,
		Message: fmt.Sprintf("You have an appointment today with the %s Department.", departmentLabel(dept)),
	}
}

func tomorrowNotice(dept string, a Appointment) notice {
	msg := fmt.Sprintf("Your appointment with the %s Department is tomorrow, %s", departmentLabel(dept), longDate(a.Date))
	if a.Time != "" {
		msg += " at " + a.Time
	}
	return notice{Title: TitleTomorrow, Message: msg + "."}
}

// transitionNotice derives the single notification owed for moving prev to
// next, or nil when the change is not user visible.
func transitionNotice(dept string, prev, next Appointment) *notice {
	if next.Status != prev.Status && next.Status.Terminal() {
		var n notice
		if next.Status == StatusCompleted {
			n = completedNotice(dept, next)
		} else {
			n = cancelledNotice(TitleCancelled, dept, next)
		}
		return &n
	}

	if next.Status.Terminal() {
		return nil
	}
	if !next.Date.Equal(prev.Date) || next.Time != prev.Time {
		n := rescheduledNotice(dept, next)
		return &n
	}
	return nil
}
