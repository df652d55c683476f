package core

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is the locale of the original register (Egyptian Arabic).
const DefaultLocale = "ar-EG"

// dateStyle describes how a locale writes a short calendar date.
type dateStyle struct {
	order string // "dmy", "mdy" or "ymd"
	sep   string
	pad   bool
	// digits overrides the numbering system of the locale, e.g. "arab".
	digits string
}

// supportedLocales lists the locales with a known short date style. The first
// entry is the fallback used by the matcher.
var supportedLocales = []language.Tag{
	language.MustParse("ar-EG"),
	language.MustParse("en-US"),
	language.MustParse("en-GB"),
	language.MustParse("fr-FR"),
	language.MustParse("de-DE"),
}

var dateStyles = map[string]dateStyle{
	// U+200F keeps the separators in order inside right-to-left text.
	"ar-EG": {order: "dmy", sep: "\u200f/", digits: "arab"},
	"en-US": {order: "mdy", sep: "/"},
	"en-GB": {order: "dmy", sep: "/", pad: true},
	"fr-FR": {order: "dmy", sep: "/", pad: true},
	"de-DE": {order: "dmy", sep: ".", pad: true},
}

var localeMatcher = language.NewMatcher(supportedLocales)

// DateFormatter renders createdAt timestamps as locale calendar dates.
type DateFormatter struct {
	tag     language.Tag
	style   dateStyle
	loc     *time.Location
	printer *message.Printer
}

// NewDateFormatter resolves locale against the supported set and binds the
// formatter to loc. An unknown locale falls back to DefaultLocale; a nil loc
// means time.Local.
func NewDateFormatter(locale string, loc *time.Location) *DateFormatter {
	if loc == nil {
		loc = time.Local
	}
	desired, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(desired) == 0 {
		desired = []language.Tag{language.MustParse(DefaultLocale)}
	}
	_, idx, _ := localeMatcher.Match(desired...)
	tag := supportedLocales[idx]
	style := dateStyles[tag.String()]

	// x/text defaults ar-EG to Latin digits; the register shows Arabic-Indic.
	printTag := tag
	if style.digits != "" {
		if nu, err := tag.SetTypeForKey("nu", style.digits); err == nil {
			printTag = nu
		}
	}

	return &DateFormatter{
		tag:     tag,
		style:   style,
		loc:     loc,
		printer: message.NewPrinter(printTag),
	}
}

// Locale returns the resolved locale tag.
func (f *DateFormatter) Locale() string {
	return f.tag.String()
}

// Lang returns the base language of the resolved locale, e.g. "ar".
func (f *DateFormatter) Lang() string {
	base, _ := f.tag.Base()
	return base.String()
}

// Format renders a millisecond timestamp.
func (f *DateFormatter) Format(ms int64) string {
	t := time.UnixMilli(ms).In(f.loc)
	d, m, y := t.Day(), int(t.Month()), t.Year()

	var parts [3]string
	switch f.style.order {
	case "mdy":
		parts = [3]string{f.digits(m, f.style.pad), f.digits(d, f.style.pad), f.digits(y, false)}
	case "ymd":
		parts = [3]string{f.digits(y, false), f.digits(m, true), f.digits(d, true)}
	default:
		parts = [3]string{f.digits(d, f.style.pad), f.digits(m, f.style.pad), f.digits(y, false)}
	}
	return parts[0] + f.style.sep + parts[1] + f.style.sep + parts[2]
}

// digits prints n in the locale's numbering system without grouping.
func (f *DateFormatter) digits(n int, pad bool) string {
	opts := []number.Option{number.NoSeparator()}
	if pad {
		opts = append(opts, number.MinIntegerDigits(2))
	}
	return f.printer.Sprint(number.Decimal(n, opts...))
}

// FileDate is the date stamp used in export file names.
func FileDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}
