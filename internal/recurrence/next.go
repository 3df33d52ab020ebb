package recurrence

import "time"

// Next returns the smallest instant strictly after from that satisfies the
// rule, preserving from's time of day. ok is false only when UNTIL cuts the
// schedule off; COUNT is generation bookkeeping and is not consulted here,
// that check belongs to the caller.
func (r Rule) Next(from time.Time) (next time.Time, ok bool) {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	switch r.Freq {
	case Daily:
		next = from.AddDate(0, 0, interval)
	case Weekly:
		if len(r.ByDay) > 0 {
			next = r.nextByDay(from, interval)
		} else {
			next = from.AddDate(0, 0, 7*interval)
		}
	case Monthly:
		next = r.nextMonthly(from, interval)
	default:
		return time.Time{}, false
	}

	if r.Until != nil && next.After(*r.Until) {
		return time.Time{}, false
	}
	return next, true
}

// nextByDay scans forward day by day from the day after from until it hits a
// weekday in ByDay. With interval > 1 the scan first finishes the days left
// in from's week, then jumps the (interval-1) off weeks before resuming, so
// "every 2 weeks on Mon, Fri" yields Mon, Fri, skip a week, Mon, Fri, ...
func (r Rule) nextByDay(from time.Time, interval int) time.Time {
	fromWeek := weekStart(from)
	d := from.AddDate(0, 0, 1)
	jumped := false

	// ByDay is non-empty, so a match exists within the scanned two weeks.
	for i := 0; i < 14; i++ {
		if !jumped && interval > 1 && weekStart(d).After(fromWeek) {
			d = d.AddDate(0, 0, 7*(interval-1))
			jumped = true
		}
		if r.onDay(d.Weekday()) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// nextMonthly advances by interval months and clamps the target day to the
// month's length, so "monthly on the 31st" lands on Apr 30, not May 1.
func (r Rule) nextMonthly(from time.Time, interval int) time.Time {
	day := r.ByMonthDay
	if day == 0 {
		day = from.Day()
	}

	year, month, _ := from.Date()
	first := time.Date(year, month+time.Month(interval), 1,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	y, m, _ := first.Date()

	if last := daysInMonth(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// weekStart returns Monday at midnight of t's week.
func weekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	monday := t.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
