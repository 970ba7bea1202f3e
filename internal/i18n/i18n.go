// ABOUTME: English and German UI strings plus language and week-start resolution.
// ABOUTME: Uses golang.org/x/text for tag parsing and locale-aware number formatting.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Lang is a supported UI language, or Auto to follow the host.
type Lang string

const (
	Auto    Lang = "auto"
	English Lang = "en"
	German  Lang = "de"
)

// Supported lists the concrete languages with translation tables.
var Supported = []Lang{English, German}

// Valid reports whether l is Auto or a supported language.
func (l Lang) Valid() bool {
	return l == Auto || l == English || l == German
}

// Tag returns the x/text tag for l, English for anything unsupported.
func (l Lang) Tag() language.Tag {
	if l == German {
		return language.German
	}
	return language.English
}

// Translations holds the card's user-visible strings.
type Translations struct {
	Lang          Lang
	Days          string
	Day           string
	Today         string
	Yesterday     string
	DayBefore     string
	More          string
	WhenEvent     string
	Cancel        string
	Confirm       string
	InvalidEntity string
	InvalidData   string
	Unavailable   string
	Close         string
}

var tables = map[Lang]Translations{
	English: {
		Lang:          English,
		Days:          "days",
		Day:           "day",
		Today:         "Today",
		Yesterday:     "Yesterday",
		DayBefore:     "Day before yesterday",
		More:          "More…",
		WhenEvent:     "When did it happen?",
		Cancel:        "Cancel",
		Confirm:       "Confirm",
		InvalidEntity: "Invalid entity type",
		InvalidData:   "Invalid entity data",
		Unavailable:   "Unavailable",
		Close:         "Close",
	},
	German: {
		Lang:          German,
		Days:          "Tage",
		Day:           "Tag",
		Today:         "Heute",
		Yesterday:     "Gestern",
		DayBefore:     "Vorgestern",
		More:          "Mehr…",
		WhenEvent:     "Wann war das Ereignis?",
		Cancel:        "Abbrechen",
		Confirm:       "Bestätigen",
		InvalidEntity: "Ungültiger Entity-Typ",
		InvalidData:   "Ungültige Entity-Daten",
		Unavailable:   "Nicht verfügbar",
		Close:         "Schließen",
	},
}

// For returns the table for lang, falling back to English.
func For(lang Lang) Translations {
	if t, ok := tables[lang]; ok {
		return t
	}
	return tables[English]
}

// Resolve picks the UI language: an explicit config language wins, then the
// host's base language ("de-DE" is German), then English.
func Resolve(configLang Lang, hostLang string) Lang {
	if configLang != "" && configLang != Auto {
		if _, ok := tables[configLang]; ok {
			return configLang
		}
	}
	if hostLang != "" {
		if tag, err := language.Parse(hostLang); err == nil {
			base, _ := tag.Base()
			if _, ok := tables[Lang(base.String())]; ok {
				return Lang(base.String())
			}
		}
	}
	return English
}

// ParseLang validates a configured language string.
func ParseLang(s string) (Lang, error) {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	if l == "" {
		return Auto, nil
	}
	if !l.Valid() {
		return "", fmt.Errorf("unsupported language %q (want auto, en, or de)", s)
	}
	return l, nil
}

// WeekStart maps a host first_weekday setting to a weekday. Only "sunday"
// moves the start away from Monday.
func WeekStart(firstWeekday string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(firstWeekday), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

var weekdayAbbr = map[Lang][7]string{
	English: {"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"},
	German:  {"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
}

var monthNames = map[Lang][12]string{
	English: {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	German: {"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember"},
}

// WeekdayNames returns two-letter weekday headers starting at weekStart.
func WeekdayNames(weekStart time.Weekday, lang Lang) []string {
	abbr, ok := weekdayAbbr[lang]
	if !ok {
		abbr = weekdayAbbr[English]
	}
	names := make([]string, 7)
	for i := range names {
		names[i] = abbr[(int(weekStart)+i)%7]
	}
	return names
}

// MonthName returns the calendar header, e.g. "January 2026" or "März 2026".
func MonthName(year int, month time.Month, lang Lang) string {
	names, ok := monthNames[lang]
	if !ok {
		names = monthNames[English]
	}
	if month < time.January || month > time.December {
		return fmt.Sprintf("%d-%02d", year, int(month))
	}
	return fmt.Sprintf("%s %d", names[month-1], year)
}

// FormatDays renders a day count with the right unit and the language's
// digit grouping ("1 day", "1,200 days", "1.200 Tage").
func FormatDays(n int, tr Translations) string {
	unit := tr.Days
	if n == 1 {
		unit = tr.Day
	}
	p := message.NewPrinter(tr.Lang.Tag())
	return p.Sprintf("%d %s", n, unit)
}
