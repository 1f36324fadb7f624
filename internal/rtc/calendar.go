package rtc

import "time"

// Weekday returns the day of the week using Zeller's congruence.
func Weekday(year, month, day int) time.Weekday {
	if month < 3 {
		month += 12
		year--
	}
	k := year % 100
	j := year / 100
	h := (day + 13*(month+1)/5 + k + k/4 + j/4 + 5*j) % 7
	// h counts from Saturday
	return time.Weekday((h + 6) % 7)
}

// IsLeapYear applies the Gregorian 4/100/400 rule
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the length of month, or 0 for an invalid month
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	}
	return 0
}
