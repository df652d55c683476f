package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/tamween/internal/storage"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"parse error", &ParseError{Source: "import", Err: errors.New("bad")}, "IMP001"},
		{"wrapped parse error", fmt.Errorf("import: %w", &ParseError{Source: "import"}), "IMP001"},
		{"invalid policy", fmt.Errorf("%w: %q", ErrInvalidPolicy, "both"), "IMP002"},
		{"file too large", ErrFileTooLarge, "IMP003"},
		{"http body limit", errors.New("http: request body too large"), "IMP003"},
		{"no file", ErrNoFile, "IMP004"},
		{"too many imports", ErrTooManyImports, "IMP005"},
		{"empty collection", ErrEmptyCollection, "EXP001"},
		{"write warning", &WriteWarning{Key: "k", Err: errors.New("disk")}, "STO001"},
		{"quota inside write warning", &WriteWarning{Key: "k", Err: storage.ErrQuotaExceeded}, "STO002"},
		{"connection refused", errors.New("dial tcp: connection refused"), "STO003"},
		{"validation", &ValidationError{Fields: []string{"name"}}, "VAL001"},
		{"not found", fmt.Errorf("%w: abc", ErrNotFound), "REC001"},
		{"confirmation", ErrConfirmationRequired, "REQ001"},
		{"bad request body", fmt.Errorf("%w: eof", ErrInvalidRequest), "REQ002"},
		{"case insensitive pattern", errors.New("Storage QUOTA EXCEEDED"), "STO002"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestMapErrorLang(t *testing.T) {
	ar := MapErrorLang(ErrEmptyCollection, LangArabic)
	en := MapErrorLang(ErrEmptyCollection, LangEnglish)
	other := MapErrorLang(ErrEmptyCollection, "fr")

	if en.Message != "Nothing to export" {
		t.Errorf("english message = %q, want %q", en.Message, "Nothing to export")
	}
	if ar.Message != "لا توجد بيانات لتصديرها" {
		t.Errorf("arabic message = %q", ar.Message)
	}
	if other != ar {
		t.Errorf("unknown language = %+v, want arabic %+v", other, ar)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyCollection, LangEnglish)
	want := "Nothing to export (EXP001). Add customers first"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil, LangEnglish); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil, LangEnglish); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("%w: id-1", ErrNotFound)
		userErr := NewUserError(techErr, LangEnglish)

		if userErr.Error() != "Customer not found" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrNotFound) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		accept   string
		fallback string
		want     string
	}{
		{"", "ar", "ar"},
		{"", "en", "en"},
		{"en-US,en;q=0.9", "ar", "en"},
		{"ar-EG,ar;q=0.9,en;q=0.8", "en", "ar"},
		{"ja-JP", "en", "en"},
		{"!!", "ar", "ar"},
	}
	for _, tt := range tests {
		t.Run(tt.accept+"/"+tt.fallback, func(t *testing.T) {
			if got := MatchLanguage(tt.accept, tt.fallback); got != tt.want {
				t.Errorf("MatchLanguage(%q, %q) = %q, want %q", tt.accept, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestMessageForCode(t *testing.T) {
	msg, ok := MessageForCode("STO001", LangEnglish)
	if !ok || msg.Code != "STO001" || msg.Message == "" {
		t.Errorf("MessageForCode(STO001) = %+v, %v", msg, ok)
	}
	if _, ok := MessageForCode("NOPE", LangEnglish); ok {
		t.Error("unknown code should not resolve")
	}
}
