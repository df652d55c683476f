package core

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func sampleRecords() []Customer {
	return []Customer{
		{ID: "b7c1", Name: "سعاد محمود", PageNumber: "007", FamilyCount: 5, SecretPin: "0420", CreatedAt: 1709640000000},
		{ID: "a9f3", Name: "Ali, \"the elder\"", PageNumber: "12/B", FamilyCount: 1, SecretPin: "9999", CreatedAt: 1709000000000},
		{ID: "", Name: "line\nbreak", PageNumber: " 3 ", FamilyCount: 2, SecretPin: "x", CreatedAt: 0},
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	for _, indent := range []bool{true, false} {
		var buf bytes.Buffer
		if err := EncodeJSON(&buf, sampleRecords(), indent); err != nil {
			t.Fatalf("EncodeJSON(indent=%v) error = %v", indent, err)
		}

		got, err := DecodeJSON(&buf)
		if err != nil {
			t.Fatalf("DecodeJSON() error = %v", err)
		}

		want := sampleRecords()
		if len(got) != len(want) {
			t.Fatalf("decoded %d records, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	}
}

func TestJSON_RoundTripLargeIntegers(t *testing.T) {
	want := []Customer{
		{ID: "max", Name: "a", PageNumber: "1", FamilyCount: 1, SecretPin: "p", CreatedAt: math.MaxInt64},
		{ID: "odd", Name: "b", PageNumber: "2", FamilyCount: 1<<53 + 1, SecretPin: "p", CreatedAt: 1<<53 + 1},
	}
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, want, false); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEncodeJSON_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := EncodeJSON(&a, sampleRecords(), true); err != nil {
		t.Fatal(err)
	}
	if err := EncodeJSON(&b, sampleRecords(), true); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two encodings of the same records differ")
	}
}

func TestEncodeJSON_Shape(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, nil, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[]" {
		t.Errorf("empty encoding = %q, want %q", buf.String(), "[]")
	}

	buf.Reset()
	rec := []Customer{{ID: "a", Name: "n", PageNumber: "1", FamilyCount: 2, SecretPin: "p", CreatedAt: 3}}
	if err := EncodeJSON(&buf, rec, false); err != nil {
		t.Fatal(err)
	}
	want := `[{"id":"a","name":"n","pageNumber":"1","familyCount":2,"secretPin":"p","createdAt":3}]`
	if buf.String() != want {
		t.Errorf("compact encoding = %s, want %s", buf.String(), want)
	}

	buf.Reset()
	if err := EncodeJSON(&buf, rec, true); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "[\n  {\n    \"id\": \"a\"") {
		t.Errorf("indented encoding = %s", buf.String())
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"object", `{"id":"a"}`},
		{"number", `42`},
		{"string", `"records"`},
		{"null", `null`},
		{"malformed", `[{"id":`},
		{"not json", `name,page`},
		{"empty", ``},
		{"whitespace", "  \n "},
		{"non-object element", `[{"id":"a"}, 7]`},
		{"trailing garbage", `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON(strings.NewReader(tt.input))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("DecodeJSON() error = %v, want *ParseError", err)
			}
			if pe.Source != "import" {
				t.Errorf("Source = %q, want %q", pe.Source, "import")
			}
			if got != nil {
				t.Errorf("DecodeJSON() records = %v, want nil", got)
			}
		})
	}
}

func TestDecodeJSON_EmptyArray(t *testing.T) {
	got, err := DecodeJSON(strings.NewReader(" [ ] "))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("DecodeJSON() = %#v, want empty non-nil slice", got)
	}
}

func TestEncodeCSV_Escaping(t *testing.T) {
	dates := NewDateFormatter("en-US", time.UTC)
	rec := []Customer{{
		ID:          "a",
		Name:        `Ali, "the elder"`,
		PageNumber:  "007",
		FamilyCount: 4,
		SecretPin:   "1234",
		CreatedAt:   testEpoch.UnixMilli(),
	}}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, rec, dates); err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}

	want := "\ufeff" +
		"Name,Page number,Family count,PIN,Created\r\n" +
		`"Ali, ""the elder""",007,4,1234,3/5/2024` + "\r\n"
	if buf.String() != want {
		t.Errorf("EncodeCSV() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestEncodeCSV_LineBreakAndOrder(t *testing.T) {
	dates := NewDateFormatter("en-GB", time.UTC)
	recs := []Customer{
		{Name: "second", PageNumber: "2", FamilyCount: 1, SecretPin: "b", CreatedAt: testEpoch.UnixMilli()},
		{Name: "multi\nline", PageNumber: "1", FamilyCount: 1, SecretPin: "a", CreatedAt: testEpoch.UnixMilli()},
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, recs, dates); err != nil {
		t.Fatal(err)
	}
	out := strings.TrimPrefix(buf.String(), "\ufeff")
	lines := strings.Split(out, "\r\n")

	if lines[1] != "second,2,1,b,05/03/2024" {
		t.Errorf("first data row = %q, want storage order and day-first date", lines[1])
	}
	// Line breaks inside a quoted field are written as CRLF too.
	if !strings.HasSuffix(out, "\"multi\r\nline\",1,1,a,05/03/2024\r\n") {
		t.Errorf("multi-line name not quoted: %q", out)
	}
}

func TestEncodeCSV_ArabicDefault(t *testing.T) {
	dates := NewDateFormatter("", time.UTC)
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, sampleRecords()[:1], dates); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "\ufeffالاسم,") {
		t.Errorf("want BOM and Arabic header, got %q", out[:min(len(out), 40)])
	}
	if strings.Contains(out, "1709640000000") {
		t.Error("creation date must not be the raw timestamp")
	}
}

func TestEncodeCSV_EmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, nil, NewDateFormatter("en-US", time.UTC)); err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}
	if want := "\ufeffName,Page number,Family count,PIN,Created\r\n"; buf.String() != want {
		t.Errorf("EncodeCSV(nil) = %q, want header only", buf.String())
	}
}

func TestFileNames(t *testing.T) {
	at := time.Date(2025, 1, 9, 23, 0, 0, 0, time.UTC)
	if got := BackupFileName(at); got != "tamween_backup_2025-01-09.json" {
		t.Errorf("BackupFileName() = %q", got)
	}
	if got := CSVFileName(at); got != "tamween_customers_2025-01-09.csv" {
		t.Errorf("CSVFileName() = %q", got)
	}
}
