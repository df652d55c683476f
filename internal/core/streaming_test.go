package core

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte(`[{"id":"a"}]`)...),
			expected: `[{"id":"a"}]`,
		},
		{
			name:     "file without BOM",
			input:    []byte(`[]`),
			expected: `[]`,
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:     "BOM only stripped at start",
			input:    append([]byte("x"), 0xEF, 0xBB, 0xBF),
			expected: string(append([]byte("x"), 0xEF, 0xBB, 0xBF)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"ascii", []byte(`{"name":"Ali"}`), `{"name":"Ali"}`},
		{"arabic kept", []byte("محمد أحمد"), "محمد أحمد"},
		{"invalid byte replaced", []byte{'a', 0xFF, 'b'}, "a?b"},
		{"latin-1 byte replaced", []byte{'c', 'a', 'f', 0xE9}, "caf?"},
		{"truncated sequence at EOF", []byte{'a', 0xD9}, "a?"},
		{"encoded replacement char kept", []byte("x�y"), "x�y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitSequences(t *testing.T) {
	// One byte per read splits every Arabic letter across reads.
	input := "الاسم: سعاد"
	r := NewUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader([]byte(input))))

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestUTF8Sanitizer_SmallBuffer(t *testing.T) {
	input := "ب؟ج"
	r := NewUTF8Sanitizer(bytes.NewReader([]byte(input)))

	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
	if string(out) != input {
		t.Errorf("got %q, want %q", out, input)
	}
}

func TestNewImportReader(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("[{\"name\":\"a\xffb\"}]")...)

	got, err := io.ReadAll(NewImportReader(bytes.NewReader(input)))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if want := `[{"name":"a?b"}]`; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
