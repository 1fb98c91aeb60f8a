package lanecsv

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
)

func TestWriterWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records [][]string
		dialect *Dialect
		config  func(*Writer)
		want    string
	}{
		{
			name:    "basic",
			records: [][]string{{"a", "b", "c"}},
			want:    "a,b,c\n",
		},
		{
			name: "multipleRecords",
			records: [][]string{
				{"alpha", "beta"},
				{"gamma", "delta"},
			},
			want: "alpha,beta\ngamma,delta\n",
		},
		{
			name:    "emptyField",
			records: [][]string{{"", "b"}},
			want:    ",b\n",
		},
		{
			name:    "commaForcesQuote",
			records: [][]string{{"alpha,beta"}},
			want:    "\"alpha,beta\"\n",
		},
		{
			name: "quoteEscaping",
			records: [][]string{
				{"he said \"hello\"", "plain"},
			},
			want: "\"he said \"\"hello\"\"\",plain\n",
		},
		{
			name: "newlineForcesQuote",
			records: [][]string{
				{"multi\nline", "z"},
			},
			want: "\"multi\nline\",z\n",
		},
		{
			name: "alwaysQuote",
			records: [][]string{
				{"alpha", "beta"},
			},
			config: func(w *Writer) {
				w.AlwaysQuote = true
			},
			want: "\"alpha\",\"beta\"\n",
		},
		{
			name: "customDelimiter",
			records: [][]string{
				{"a;b", "c"},
			},
			dialect: &Dialect{Delimiter: ';'},
			want:    "\"a;b\";c\n",
		},
		{
			name: "customQuote",
			records: [][]string{
				{"alpha'beta", "plain"},
			},
			dialect: &Dialect{Quote: '\''},
			want:    "'alpha''beta',plain\n",
		},
		{
			name: "crlf",
			records: [][]string{
				{"a"},
				{"b"},
			},
			dialect: &Dialect{Newline: NewlineCRLF},
			want:    "a\r\nb\r\n",
		},
		{
			name: "unixEscapes",
			records: [][]string{
				{"back\\slash", "q\"uote", "plain"},
			},
			dialect: func() *Dialect { d := UnixDialect(); return &d }(),
			want:    "\"back\\\\slash\",\"q\\\"uote\",plain\n",
		},
		{
			name:    "edgeSpacesUnderTrimming",
			records: [][]string{{" a", "b ", "c"}},
			dialect: &Dialect{Trimming: TrimBoth},
			want:    "\" a\",\"b \",c\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			w := NewWriter(&buf)
			if tc.dialect != nil {
				w = NewDialectWriter(&buf, *tc.dialect)
			}
			if tc.config != nil {
				tc.config(w)
			}
			for _, rec := range tc.records {
				if err := w.Write(rec); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			if got := buf.String(); got != tc.want {
				t.Fatalf("unexpected output:\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestWriterWriteAll(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)

	records := [][]string{
		{"alpha", "beta"},
		{"gamma", "delta"},
	}

	if err := w.WriteAll(records); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := "alpha,beta\ngamma,delta\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output got %q want %q", got, want)
	}
}

func TestWriterReset(t *testing.T) {
	t.Parallel()

	var buf1 bytes.Buffer
	var buf2 bytes.Buffer

	w := NewDialectWriter(&buf1, Dialect{Delimiter: ';', Newline: NewlineCRLF})

	if err := w.Write([]string{"a", "b"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := buf1.String(); got != "a;b\r\n" {
		t.Fatalf("unexpected buf1 contents %q", got)
	}

	w.Reset(&buf2)
	if err := w.Write([]string{"x", "y"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := buf2.String(); got != "x;y\r\n" {
		t.Fatalf("unexpected buf2 contents %q", got)
	}
}

type flushFailWriter struct {
	fail error
}

func (f *flushFailWriter) Write([]byte) (int, error) {
	return 0, f.fail
}

func TestWriterFlushError(t *testing.T) {
	t.Parallel()

	exp := errors.New("flush failed")
	w := NewWriter(&flushFailWriter{fail: exp})

	if err := w.Write([]string{"a"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); !errors.Is(err, exp) {
		t.Fatalf("expected flush error %v, got %v", exp, err)
	}
	if err := w.Write([]string{"b"}); !errors.Is(err, exp) {
		t.Fatalf("Write() should return stored error %v, got %v", exp, err)
	}
}

func TestWriterErrorMethod(t *testing.T) {
	t.Parallel()

	w := NewWriter(&strings.Builder{})
	if err := w.Error(); err != nil {
		t.Fatalf("expected nil error from fresh writer, got %v", err)
	}

	exp := errors.New("flush failed")
	w.Reset(&flushFailWriter{fail: exp})
	if err := w.Write([]string{"a"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); !errors.Is(err, exp) {
		t.Fatalf("expected flush error %v, got %v", exp, err)
	}
	if err := w.Error(); !errors.Is(err, exp) {
		t.Fatalf("Error() should return %v, got %v", exp, err)
	}
}

func randomField(rng *rand.Rand) string {
	const alphabet = "ab ,;\"'\\\r\n\txé"
	runes := []rune(alphabet)
	n := rng.IntN(12)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(runes[rng.IntN(len(runes))])
	}
	return sb.String()
}

func TestWriterReaderRoundTrip(t *testing.T) {
	t.Parallel()

	unix := UnixDialect()
	dialects := map[string]Dialect{
		"rfc4180":   DefaultDialect(),
		"crlf":      {Newline: NewlineCRLF},
		"semicolon": {Delimiter: ';', Quote: '\''},
		"unix":      unix,
		"trimmed":   {Trimming: TrimBoth},
	}
	for name, d := range dialects {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rng := rand.New(rand.NewPCG(7, uint64(len(name))))
			var want [][]string
			for i := 0; i < 300; i++ {
				rec := make([]string, 1+rng.IntN(5))
				for j := range rec {
					rec[j] = randomField(rng)
				}
				want = append(want, rec)
			}

			var buf bytes.Buffer
			w := NewDialectWriter(&buf, d)
			if err := w.WriteAll(want); err != nil {
				t.Fatalf("WriteAll() error = %v", err)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}

			r, err := NewReaderOptions(&buf, Options{Dialect: d, FieldsPerRecord: -1, BufferSize: 64})
			if err != nil {
				t.Fatalf("NewReaderOptions() error = %v", err)
			}
			got, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got: %q\nwant: %q", got, want)
			}
		})
	}
}

func TestAppendEscapedUnescapes(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(11, 12))
	for _, d := range []Dialect{DefaultDialect(), UnixDialect()} {
		for i := 0; i < 500; i++ {
			s := randomField(rng)
			if s == "" {
				continue
			}
			raw := AppendEscaped(nil, s, d)
			r, err := NewBytesReader(raw, Options{Dialect: d})
			if err != nil {
				t.Fatalf("NewBytesReader() error = %v", err)
			}
			rec, err := r.ReadRecord()
			if err != nil {
				t.Fatalf("ReadRecord(%q) error = %v", raw, err)
			}
			if rec.FieldCount() != 1 {
				t.Fatalf("ReadRecord(%q) returned %d fields", raw, rec.FieldCount())
			}
			got, err := rec.String(0)
			if err != nil || got != s {
				t.Fatalf("unescape(escape(%q)) = %q, %v", s, got, err)
			}
		}
	}
}
