package lanecsv

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func FuzzReaderConsistency(f *testing.F) {
	seeds := []string{
		"",
		"a,b,c\n",
		"a,\"b,b\",c\n",
		"a,\"b\nc\",d\n",
		"\"unterminated\n",
		"a\"b,c\n",
		"one\r\ntwo\r\n",
		"trailing,newline\n",
		"a,\"b\"\"c\"\r\nd\re",
		"\"ab\"c,d\n",
		"\"\" a\n",
		"a\\\\ ,b\n",
		" \"x\"  ,\"y\" z\n",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if len(input) > 1<<12 {
			t.Skip()
		}

		recordsManual, errManual := readRecordsSequential(input, false)
		recordsReuse, errReuse := readRecordsSequential(input, true)
		recordsAll, errAll := readRecordsAll(input)

		if !sameReaderError(errManual, errReuse) {
			t.Fatalf("reuse mismatch: errManual=%v errReuse=%v input=%q", errManual, errReuse, truncateForMessage(input))
		}
		if !sameReaderError(errManual, errAll) {
			t.Fatalf("ReadAll mismatch: errManual=%v errAll=%v input=%q", errManual, errAll, truncateForMessage(input))
		}
		if errManual == nil {
			if !recordsEqual(recordsManual, recordsReuse) {
				t.Fatalf("records mismatch with reuse:\nmanual=%v\nreuse=%v\ninput=%q", recordsManual, recordsReuse, truncateForMessage(input))
			}
			if !recordsEqual(recordsManual, recordsAll) {
				t.Fatalf("records mismatch with ReadAll:\nmanual=%v\nreadAll=%v\ninput=%q", recordsManual, recordsAll, truncateForMessage(input))
			}
		}

		for name, d := range fuzzDialects {
			recordsStream, errStream := readRecordsStream(input, d)
			recordsSplit, errSplit := readRecordsOneByte(input, d)
			recordsMem, errMem := readRecordsMemory(input, d)

			if !sameReaderError(errStream, errSplit) {
				t.Fatalf("%s: one byte reads mismatch: errStream=%v errSplit=%v input=%q", name, errStream, errSplit, truncateForMessage(input))
			}
			if !sameReaderError(errStream, errMem) {
				t.Fatalf("%s: memory mismatch: errStream=%v errMem=%v input=%q", name, errStream, errMem, truncateForMessage(input))
			}
			if !recordsEqual(recordsStream, recordsSplit) {
				t.Fatalf("%s: records mismatch with one byte reads:\nstream=%v\nsplit=%v\ninput=%q", name, recordsStream, recordsSplit, truncateForMessage(input))
			}
			if !recordsEqual(recordsStream, recordsMem) {
				t.Fatalf("%s: records mismatch in memory:\nstream=%v\nmemory=%v\ninput=%q", name, recordsStream, recordsMem, truncateForMessage(input))
			}
		}
	})
}

var fuzzDialects = map[string]Dialect{
	"rfc4180":   {},
	"unix":      UnixDialect(),
	"lazy":      {LazyQuotes: true},
	"crOnly":    {Newline: NewlineCR},
	"trimBoth":  {Trimming: TrimBoth},
	"unixTrim":  unixTrimmed,
	"lazyTrim":  {Trimming: TrimBoth, LazyQuotes: true},
	"trimLead":  {Trimming: TrimLeading},
	"trimTrail": {Trimming: TrimTrailing},
}

func readRecordsSequential(input string, reuse bool) ([][]string, error) {
	r := NewReader(strings.NewReader(input))
	r.ReuseRecord = reuse
	r.FieldsPerRecord = -1
	return drain(r)
}

func readRecordsStream(input string, d Dialect) ([][]string, error) {
	r, err := NewReaderOptions(strings.NewReader(input), Options{Dialect: d, FieldsPerRecord: -1})
	if err != nil {
		return nil, err
	}
	return drain(r)
}

func readRecordsOneByte(input string, d Dialect) ([][]string, error) {
	r, err := NewReaderOptions(iotest.OneByteReader(strings.NewReader(input)), Options{Dialect: d, FieldsPerRecord: -1, BufferSize: 64})
	if err != nil {
		return nil, err
	}
	return drain(r)
}

func readRecordsMemory(input string, d Dialect) ([][]string, error) {
	r, err := NewBytesReader([]byte(input), Options{Dialect: d, FieldsPerRecord: -1})
	if err != nil {
		return nil, err
	}
	return drain(r)
}

func drain(r *Reader[byte]) ([][]string, error) {
	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, cloneStrings(rec))
	}
}

func readRecordsAll(input string) ([][]string, error) {
	r := NewReader(strings.NewReader(input))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	copied := make([][]string, len(records))
	for i, rec := range records {
		copied[i] = cloneStrings(rec)
	}
	return copied, nil
}

func sameReaderError(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	sigA, lineA, colA := readerErrorSignature(a)
	sigB, lineB, colB := readerErrorSignature(b)
	return sigA == sigB && lineA == lineB && colA == colB
}

func readerErrorSignature(err error) (sig string, line int, column int) {
	var perr *ParseError
	if errors.As(err, &perr) {
		switch {
		case errors.Is(perr.Err, ErrBareQuote):
			return "bare_quote", perr.Line, perr.Column
		case errors.Is(perr.Err, ErrUnterminatedQuote):
			return "unterminated_quote", perr.Line, perr.Column
		case errors.Is(perr.Err, ErrQuote):
			return "quote", perr.Line, perr.Column
		default:
			return perr.Err.Error(), perr.Line, perr.Column
		}
	}
	return err.Error(), 0, 0
}

func recordsEqual(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func truncateForMessage(s string) string {
	const max = 256
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
