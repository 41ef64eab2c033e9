package tax

import "time"

// YearStart returns the first day of the tax year containing date. GB runs
// 6 April, ZA 1 March, the rest use the calendar year. Aliases such as UK
// or RSA resolve to their canonical code first.
func YearStart(country string, date time.Time) time.Time {
	y := date.Year()
	month, day := time.January, 1
	switch Canonical(country) {
	case "GB":
		month, day = time.April, 6
	case "ZA":
		month, day = time.March, 1
	}

	start := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
	if date.Before(start) {
		start = start.AddDate(-1, 0, 0)
	}
	return start
}
