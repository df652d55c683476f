package core

import (
	"strings"
	"testing"
	"time"
)

func TestDateFormatter_Format(t *testing.T) {
	ms := time.Date(2024, 11, 7, 10, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		locale     string
		wantLocale string
		want       string
	}{
		{"en-US", "en-US", "11/7/2024"},
		{"en-GB", "en-GB", "07/11/2024"},
		{"de-DE", "de-DE", "07.11.2024"},
		{"fr", "fr-FR", "07/11/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			f := NewDateFormatter(tt.locale, time.UTC)
			if f.Locale() != tt.wantLocale {
				t.Errorf("Locale() = %q, want %q", f.Locale(), tt.wantLocale)
			}
			if got := f.Format(ms); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDateFormatter_Fallback(t *testing.T) {
	for _, locale := range []string{"", "not a locale!!"} {
		f := NewDateFormatter(locale, nil)
		if f.Locale() != DefaultLocale {
			t.Errorf("NewDateFormatter(%q).Locale() = %q, want %q", locale, f.Locale(), DefaultLocale)
		}
		if f.Lang() != "ar" {
			t.Errorf("Lang() = %q, want ar", f.Lang())
		}
	}
}

func TestDateFormatter_Arabic(t *testing.T) {
	f := NewDateFormatter("ar-EG", time.UTC)
	got := f.Format(time.Date(2024, 11, 7, 0, 0, 0, 0, time.UTC).UnixMilli())

	if strings.Count(got, "\u200f/") != 2 {
		t.Errorf("Format() = %q, want two marked separators", got)
	}
	if strings.Contains(got, "2024") {
		t.Errorf("Format() = %q, want localized digits", got)
	}
	if want := "٧\u200f/١١\u200f/٢٠٢٤"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
	if f.Locale() != "ar-EG" {
		t.Errorf("Locale() = %q, want ar-EG", f.Locale())
	}
}

func TestDateFormatter_TimeZone(t *testing.T) {
	// 23:30 UTC is already the next day in Cairo (UTC+2 in November).
	cairo := time.FixedZone("EET", 2*60*60)
	ms := time.Date(2024, 11, 7, 23, 30, 0, 0, time.UTC).UnixMilli()

	if got := NewDateFormatter("en-US", cairo).Format(ms); got != "11/8/2024" {
		t.Errorf("Format() = %q, want %q", got, "11/8/2024")
	}
}
