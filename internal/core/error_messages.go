package core

// User-facing error messages.
//
// Every error that reaches a user is mapped to a short localized message, an
// action and a code the user can quote. Technical details are only logged.
//
// # Import (IMP001-IMP099)
//
//	IMP001 - The file is not a valid backup (not a JSON array of records)
//	IMP002 - No import policy chosen (replace or merge)
//	IMP003 - The file exceeds the import size limit
//	IMP004 - No file was selected
//	IMP005 - Too many imports are running at once
//
// # Export (EXP001-EXP099)
//
//	EXP001 - Nothing to export: the register is empty
//
// # Storage (STO001-STO099)
//
//	STO001 - The change was applied but could not be saved
//	STO002 - Saving failed because the storage limit was reached
//	STO003 - Storage is unavailable or timed out
//
// # Records and requests
//
//	VAL001 - A required field is empty
//	REC001 - The record does not exist
//	REQ001 - The action needs explicit confirmation
//	REQ002 - The request body could not be read
//
// # Default (ERR000)
//
//	ERR000 - Unexpected error; check the logs for the technical error
//
// Typed errors are matched first with errors.Is / errors.As. Anything else is
// matched against errorPatterns (case-insensitive substring, first match wins).

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/JonMunkholm/tamween/internal/storage"
)

// Supported message languages.
const (
	LangArabic  = "ar"
	LangEnglish = "en"

	DefaultLang = LangArabic
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Reference code
}

type text struct {
	Message string
	Action  string
}

// catalogEntry is one error code with its text in every supported language.
type catalogEntry struct {
	code string
	ar   text
	en   text
}

func (e catalogEntry) in(lang string) UserMessage {
	t := e.ar
	if lang == LangEnglish {
		t = e.en
	}
	return UserMessage{Message: t.Message, Action: t.Action, Code: e.code}
}

var (
	msgParse = catalogEntry{"IMP001",
		text{"الملف ليس نسخة احتياطية صالحة", "اختر ملف JSON صدّرته هذه الأداة"},
		text{"The file is not a valid backup", "Choose a JSON file exported by this tool"},
	}
	msgPolicy = catalogEntry{"IMP002",
		text{"لم يتم اختيار طريقة الاستيراد", "اختر الاستبدال أو الدمج ثم أكد"},
		text{"No import policy was chosen", "Choose replace or merge and confirm"},
	}
	msgTooLarge = catalogEntry{"IMP003",
		text{"حجم الملف أكبر من المسموح", "اختر ملفاً أصغر"},
		text{"The file is too large", "Choose a smaller file"},
	}
	msgNoFile = catalogEntry{"IMP004",
		text{"لم يتم اختيار ملف", "اختر ملف النسخة الاحتياطية"},
		text{"No file was selected", "Select a backup file"},
	}
	msgBusy = catalogEntry{"IMP005",
		text{"هناك عمليات استيراد أخرى قيد التنفيذ", "حاول مرة أخرى بعد قليل"},
		text{"Other imports are in progress", "Please try again in a moment"},
	}
	msgEmpty = catalogEntry{"EXP001",
		text{"لا توجد بيانات لتصديرها", "أضف عملاء أولاً"},
		text{"Nothing to export", "Add customers first"},
	}
	msgWriteWarning = catalogEntry{"STO001",
		text{"تم تطبيق التعديل لكن تعذر حفظه", "صدّر نسخة احتياطية لتجنب فقد البيانات"},
		text{"The change was applied but could not be saved", "Export a backup to avoid losing data"},
	}
	msgQuota = catalogEntry{"STO002",
		text{"مساحة التخزين ممتلئة", "صدّر نسخة احتياطية واحذف بعض السجلات"},
		text{"Storage is full", "Export a backup and remove some records"},
	}
	msgStorage = catalogEntry{"STO003",
		text{"التخزين غير متاح حالياً", "حاول مرة أخرى بعد قليل"},
		text{"Storage is unavailable", "Please try again in a moment"},
	}
	msgRequired = catalogEntry{"VAL001",
		text{"يرجى ملء جميع الحقول المطلوبة", "الاسم ورقم الصفحة والرقم السري مطلوبة"},
		text{"Please fill in all required fields", "Name, page number and PIN are required"},
	}
	msgNotFound = catalogEntry{"REC001",
		text{"العميل غير موجود", "ربما تم حذفه، حدّث القائمة"},
		text{"Customer not found", "It may have been deleted; refresh the list"},
	}
	msgConfirm = catalogEntry{"REQ001",
		text{"هذا الإجراء يحتاج إلى تأكيد", "أكد العملية للمتابعة"},
		text{"This action needs confirmation", "Confirm to continue"},
	}
	msgBadRequest = catalogEntry{"REQ002",
		text{"تعذر قراءة الطلب", "تحقق من البيانات المرسلة"},
		text{"The request could not be read", "Check the submitted data"},
	}
	msgDefault = catalogEntry{"ERR000",
		text{"حدث خطأ غير متوقع", "حاول مرة أخرى"},
		text{"An unexpected error occurred", "Please try again"},
	}
)

var catalog = []catalogEntry{
	msgParse, msgPolicy, msgTooLarge, msgNoFile, msgBusy, msgEmpty,
	msgWriteWarning, msgQuota, msgStorage,
	msgRequired, msgNotFound, msgConfirm, msgBadRequest, msgDefault,
}

// MessageForCode returns the message registered under code, for callers that
// carry a code across a redirect.
func MessageForCode(code, lang string) (UserMessage, bool) {
	for _, e := range catalog {
		if e.code == code {
			return e.in(lang), true
		}
	}
	return UserMessage{}, false
}

// errorPattern maps a substring of an untyped error to a catalog entry.
type errorPattern struct {
	pattern string
	entry   catalogEntry
}

// errorPatterns covers errors that arrive as text from libraries, e.g. the
// HTTP body limit or driver connection failures. Order matters.
var errorPatterns = []errorPattern{
	{"request body too large", msgTooLarge},
	{"file too large", msgTooLarge},
	{"no such file", msgNoFile},
	{"quota exceeded", msgQuota},
	{"no space left on device", msgQuota},
	{"connection refused", msgStorage},
	{"connection reset", msgStorage},
	{"database is locked", msgStorage},
	{"deadline exceeded", msgStorage},
	{"timeout", msgStorage},
	{"invalid character", msgParse},
	{"unexpected end of json", msgParse},
}

// classify finds the catalog entry for err.
func classify(err error) catalogEntry {
	var (
		pe *ParseError
		ve *ValidationError
	)
	switch {
	case errors.Is(err, storage.ErrQuotaExceeded):
		return msgQuota
	case IsWriteWarning(err):
		return msgWriteWarning
	case errors.As(err, &pe):
		return msgParse
	case errors.As(err, &ve):
		return msgRequired
	case errors.Is(err, ErrEmptyCollection):
		return msgEmpty
	case errors.Is(err, ErrInvalidPolicy):
		return msgPolicy
	case errors.Is(err, ErrFileTooLarge):
		return msgTooLarge
	case errors.Is(err, ErrNoFile):
		return msgNoFile
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.Is(err, ErrConfirmationRequired):
		return msgConfirm
	case errors.Is(err, ErrInvalidRequest):
		return msgBadRequest
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.entry
		}
	}
	return msgDefault
}

// MapError converts err to a user message in the default language.
func MapError(err error) UserMessage {
	return MapErrorLang(err, DefaultLang)
}

// MapErrorLang converts err to a user message in lang. Unknown languages
// fall back to Arabic. A nil error maps to the zero UserMessage.
func MapErrorLang(err error, lang string) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return classify(err).in(lang)
}

// FormatUserError renders err as "Message (CODE). Action" in lang.
func FormatUserError(err error, lang string) string {
	msg := MapErrorLang(err, lang)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return classify(err).code != msgDefault.code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err for lang. It returns nil for a nil error.
func NewUserError(err error, lang string) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapErrorLang(err, lang)}
}

var langMatcher = language.NewMatcher([]language.Tag{language.Arabic, language.English})

// MatchLanguage picks the message language for an Accept-Language header
// value. Without a usable preference it returns fallback.
func MatchLanguage(accept, fallback string) string {
	if fallback != LangEnglish {
		fallback = LangArabic
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	if idx == 1 {
		return LangEnglish
	}
	return LangArabic
}
