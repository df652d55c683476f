package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Export file name prefixes.
const (
	BackupFilePrefix = "tamween_backup_"
	CSVFilePrefix    = "tamween_customers_"
)

// BackupFileName returns the name of a JSON backup taken at t.
func BackupFileName(t time.Time) string {
	return BackupFilePrefix + FileDate(t) + ".json"
}

// CSVFileName returns the name of a CSV export taken at t.
func CSVFileName(t time.Time) string {
	return CSVFilePrefix + FileDate(t) + ".csv"
}

// EncodeJSON writes records as a JSON array. Export files are indented with
// two spaces; the durable slot uses the compact form. An empty or nil slice
// encodes as [].
func EncodeJSON(w io.Writer, records []Customer, indent bool) error {
	if records == nil {
		records = []Customer{}
	}

	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// DecodeJSON parses a JSON array of records. Content that is not valid JSON,
// whose top-level value is not an array, or that holds a non-object element
// fails with a *ParseError tagged "import".
func DecodeJSON(r io.Reader) ([]Customer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	return decodeRecords(data, "import")
}

func decodeRecords(data []byte, source string) ([]Customer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Source: source, Err: io.ErrUnexpectedEOF}
	}
	if trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("invalid json")}
		}
		return nil, &ParseError{Source: source, Err: fmt.Errorf("top-level value is not an array")}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	records := make([]Customer, 0, len(elems))
	for i, raw := range elems {
		var c Customer
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &ParseError{Source: source, Err: fmt.Errorf("element %d: %w", i, err)}
		}
		records = append(records, c)
	}
	return records, nil
}

// csvHeaders holds the localized header row of the tabular export.
var csvHeaders = map[string][]string{
	"ar": {"الاسم", "رقم الصفحة", "عدد الأفراد", "الرقم السري", "تاريخ الإضافة"},
	"en": {"Name", "Page number", "Family count", "PIN", "Created"},
}

// CSVHeader returns the header row for lang. Arabic is used when lang is
// empty, English for any language without its own labels.
func CSVHeader(lang string) []string {
	if lang == "" {
		return csvHeaders["ar"]
	}
	if h, ok := csvHeaders[lang]; ok {
		return h
	}
	return csvHeaders["en"]
}

// EncodeCSV writes the tabular export: a UTF-8 byte-order mark, the header row
// for the formatter's language, then one row per record in the given order.
// Fields holding a comma, quote or line break are quoted with inner quotes
// doubled. Rows end with CRLF. The output is never read back.
func EncodeCSV(w io.Writer, records []Customer, dates *DateFormatter) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(bw)
	cw.UseCRLF = true

	if err := cw.Write(CSVHeader(dates.Lang())); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Name,
			r.PageNumber,
			strconv.Itoa(r.FamilyCount),
			r.SecretPin,
			dates.Format(r.CreatedAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
