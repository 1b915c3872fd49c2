package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDate formats t using PHP date() format characters, the syntax site
// owners already know from CMS settings. A backslash escapes the next
// character; unknown characters are copied through.
func FormatDate(format string, t time.Time) string {
	var b strings.Builder
	runes := []rune(format)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\\' {
			if i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
			}
			continue
		}
		b.WriteString(formatDateChar(c, t))
	}
	return b.String()
}

func formatDateChar(c rune, t time.Time) string {
	switch c {
	// day
	case 'd':
		return fmt.Sprintf("%02d", t.Day())
	case 'D':
		return t.Format("Mon")
	case 'j':
		return strconv.Itoa(t.Day())
	case 'l':
		return t.Weekday().String()
	case 'N':
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return strconv.Itoa(wd)
	case 'S':
		return ordinalSuffix(t.Day())
	case 'w':
		return strconv.Itoa(int(t.Weekday()))
	case 'z':
		return strconv.Itoa(t.YearDay() - 1)

	// week
	case 'W':
		_, week := t.ISOWeek()
		return fmt.Sprintf("%02d", week)

	// month
	case 'F':
		return t.Month().String()
	case 'm':
		return fmt.Sprintf("%02d", int(t.Month()))
	case 'M':
		return t.Format("Jan")
	case 'n':
		return strconv.Itoa(int(t.Month()))
	case 't':
		return strconv.Itoa(daysIn(t))

	// year
	case 'L':
		if isLeap(t.Year()) {
			return "1"
		}
		return "0"
	case 'o':
		year, _ := t.ISOWeek()
		return strconv.Itoa(year)
	case 'Y':
		return strconv.Itoa(t.Year())
	case 'y':
		return fmt.Sprintf("%02d", t.Year()%100)

	// time
	case 'a':
		return strings.ToLower(t.Format("PM"))
	case 'A':
		return t.Format("PM")
	case 'g':
		return t.Format("3")
	case 'G':
		return strconv.Itoa(t.Hour())
	case 'h':
		return t.Format("03")
	case 'H':
		return fmt.Sprintf("%02d", t.Hour())
	case 'i':
		return fmt.Sprintf("%02d", t.Minute())
	case 's':
		return fmt.Sprintf("%02d", t.Second())
	case 'u':
		return fmt.Sprintf("%06d", t.Nanosecond()/1000)
	case 'v':
		return fmt.Sprintf("%03d", t.Nanosecond()/1000000)

	// timezone
	case 'e':
		return t.Location().String()
	case 'I':
		if t.IsDST() {
			return "1"
		}
		return "0"
	case 'O':
		return t.Format("-0700")
	case 'P':
		return t.Format("-07:00")
	case 'p':
		if _, offset := t.Zone(); offset == 0 {
			return "Z"
		}
		return t.Format("-07:00")
	case 'T':
		return t.Format("MST")
	case 'Z':
		_, offset := t.Zone()
		return strconv.Itoa(offset)

	// full date/time
	case 'c':
		return t.Format("2006-01-02T15:04:05-07:00")
	case 'r':
		return t.Format("Mon, 02 Jan 2006 15:04:05 -0700")
	case 'U':
		return strconv.FormatInt(t.Unix(), 10)

	default:
		return string(c)
	}
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
