package report

import (
	"errors"
	"time"

	"communitycentre/internal/attendance"
)

// ErrNoRecords is returned when there is nothing to export.
var ErrNoRecords = errors.New("no records to export")

// Day is the attendance of one calendar day.
type Day struct {
	Date    time.Time
	Records []attendance.Record
}

// Key is the day in yyyy-mm-dd form.
func (d Day) Key() string { return d.Date.Format("2006-01-02") }

// Title is the heading used in exports, e.g. "Monday, January 2, 2006".
func (d Day) Title() string { return d.Date.Format("Monday, January 2, 2006") }

// GroupByDay buckets records by calendar day in loc, newest day first. Records keep
// their relative order inside each day.
func GroupByDay(records []attendance.Record, loc *time.Location) []Day {
	if loc == nil {
		loc = time.Local
	}
	index := make(map[string]int)
	var days []Day
	for _, r := range records {
		ts := r.Timestamp.In(loc)
		key := ts.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, Day{Date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)})
		}
		days[i].Records = append(days[i].Records, r)
	}
	// insertion sort keeps the per-day slices stable; there are few days
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j].Date.After(days[j-1].Date); j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
	return days
}

// Options control report rendering.
type Options struct {
	Centre   string
	Location *time.Location
	Now      time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Centre == "" {
		o.Centre = "Community Centre"
	}
	return o
}

var columns = []string{"Name", "Role", "Shift", "Time", "Notes"}

func row(r attendance.Record, loc *time.Location) []string {
	return []string{r.Name, string(r.Role), string(r.Shift), r.Timestamp.In(loc).Format("3:04 PM"), r.Notes}
}
