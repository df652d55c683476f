package templates

import "github.com/JonMunkholm/tamween/internal/core"

type phrase struct{ ar, en string }

var phrases = map[string]phrase{
	"app.title":         {"سجل بطاقات التموين", "Ration card register"},
	"nav.list":          {"العملاء", "Customers"},
	"nav.add":           {"إضافة عميل", "Add customer"},
	"nav.import":        {"استيراد", "Import"},
	"nav.export.json":   {"نسخة احتياطية JSON", "Backup (JSON)"},
	"nav.export.csv":    {"تصدير CSV", "Export CSV"},
	"search.label":      {"بحث بالاسم أو رقم الصفحة", "Search by name or page number"},
	"search.submit":     {"بحث", "Search"},
	"sort.label":        {"الترتيب", "Sort"},
	"sort.latest":       {"الأحدث أولاً", "Latest first"},
	"sort.alphabetical": {"أبجدياً", "Alphabetical"},
	"sort.family":       {"حسب عدد الأفراد", "By family size"},
	"stats.customers":   {"عدد العملاء", "Customers"},
	"stats.individuals": {"إجمالي الأفراد", "Individuals"},
	"stats.average":     {"متوسط حجم الأسرة", "Average household"},
	"list.empty":        {"لا يوجد عملاء بعد", "No customers yet"},
	"list.nomatch":      {"لا توجد نتائج مطابقة", "No matching customers"},
	"list.actions":      {"إجراءات", "Actions"},
	"action.edit":       {"تعديل", "Edit"},
	"action.delete":     {"حذف", "Delete"},
	"action.save":       {"حفظ", "Save"},
	"action.cancel":     {"إلغاء", "Cancel"},
	"action.back":       {"العودة إلى القائمة", "Back to the list"},
	"form.add":          {"إضافة عميل جديد", "New customer"},
	"form.edit":         {"تعديل بيانات العميل", "Edit customer"},
	"delete.title":      {"تأكيد الحذف", "Confirm deletion"},
	"delete.question":   {"هل تريد حذف هذا العميل نهائياً؟", "Delete this customer permanently?"},
	"delete.confirm":    {"نعم، احذف", "Yes, delete"},
	"import.title":      {"استيراد نسخة احتياطية", "Import a backup"},
	"import.file":       {"ملف النسخة الاحتياطية (JSON)", "Backup file (JSON)"},
	"import.current":    {"عدد السجلات الحالية", "Current records"},
	"import.replace":    {"استبدال جميع السجلات الحالية بمحتوى الملف", "Replace all current records with the file"},
	"import.merge":      {"دمج الملف مع السجلات الحالية (تبقى السجلات الحالية عند التكرار)", "Merge the file into the current records (current records win on duplicates)"},
	"import.confirm":    {"أؤكد تنفيذ الاستيراد", "I confirm this import"},
	"import.submit":     {"استيراد", "Import"},
	"import.done":       {"تم الاستيراد", "Import complete"},
	"import.read":       {"سجلات في الملف", "Records in file"},
	"import.total":      {"إجمالي السجلات الآن", "Records now"},
	"import.dupes":      {"سجلات مكررة تم تجاهلها", "Duplicates skipped"},
	"error.title":       {"خطأ", "Error"},
	"error.code":        {"رمز الخطأ", "Error code"},
	"lang.switch":       {"English", "العربية"},
}

// T returns the phrase for key in lang. Unknown keys are returned as is.
func T(lang, key string) string {
	p, ok := phrases[key]
	if !ok {
		return key
	}
	if lang == core.LangEnglish {
		return p.en
	}
	return p.ar
}

// Dir is the text direction of lang.
func Dir(lang string) string {
	if lang == core.LangEnglish {
		return "ltr"
	}
	return "rtl"
}

func otherLang(lang string) string {
	if lang == core.LangEnglish {
		return core.LangArabic
	}
	return core.LangEnglish
}

// field labels share the CSV header wording.
func label(lang string, i int) string {
	return core.CSVHeader(lang)[i]
}
