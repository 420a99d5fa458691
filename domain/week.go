package domain

import "time"

// WeekStart returns midnight UTC of the Monday of t's week. Sunday belongs
// to the week that started six days earlier.
func WeekStart(t time.Time) time.Time {
	u := t.UTC()
	back := int(u.Weekday()) - 1
	if u.Weekday() == time.Sunday {
		back = 6
	}
	y, m, d := u.Date()
	return time.Date(y, m, d-back, 0, 0, 0, 0, time.UTC)
}

// WeekID is the ISO date of the week's Monday, e.g. "2026-10-12".
func WeekID(t time.Time) string {
	return WeekStart(t).Format("2006-01-02")
}

// WeekLabel renders the Monday to Sunday range, e.g. "Oct 12 - Oct 18".
func WeekLabel(t time.Time) string {
	mon := WeekStart(t)
	sun := mon.AddDate(0, 0, 6)
	return mon.Format("Jan 2") + " - " + sun.Format("Jan 2")
}
