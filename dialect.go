package lanecsv

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDialect is returned when a Dialect fails validation.
var ErrInvalidDialect = errors.New("lanecsv: invalid dialect")

// Newline selects which tokens terminate a record.
type Newline uint8

const (
	// NewlineAuto accepts CRLF, LF and CR and reports the first one found.
	NewlineAuto Newline = iota
	// NewlineLF accepts only '\n'.
	NewlineLF
	// NewlineCRLF accepts "\r\n" as a single terminator, and a lone '\r' or '\n'.
	NewlineCRLF
	// NewlineCR accepts only '\r'.
	NewlineCR
)

var newlineNames = [...]string{"auto", "lf", "crlf", "cr"}

// String returns the lower-case name of the mode.
func (n Newline) String() string {
	if int(n) < len(newlineNames) {
		return newlineNames[n]
	}
	return fmt.Sprintf("Newline(%d)", n)
}

// MarshalText implements encoding.TextMarshaler.
func (n Newline) MarshalText() ([]byte, error) {
	if int(n) >= len(newlineNames) {
		return nil, fmt.Errorf("%w: unknown newline %d", ErrInvalidDialect, n)
	}
	return []byte(newlineNames[n]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Newline) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, v := range newlineNames {
		if v == name {
			*n = Newline(i)
			return nil
		}
	}
	switch name {
	case "", "any":
		*n = NewlineAuto
		return nil
	case `\n`:
		*n = NewlineLF
		return nil
	case `\r\n`:
		*n = NewlineCRLF
		return nil
	case `\r`:
		*n = NewlineCR
		return nil
	}
	return fmt.Errorf("%w: unknown newline %q", ErrInvalidDialect, name)
}

// multi reports whether both CR and LF are record terminators.
func (n Newline) multi() bool {
	return n == NewlineAuto || n == NewlineCRLF
}

// Trimming selects which ASCII spaces are stripped from unquoted field edges.
type Trimming uint8

const (
	TrimNone     Trimming = 0
	TrimLeading  Trimming = 1 << 0
	TrimTrailing Trimming = 1 << 1
	TrimBoth              = TrimLeading | TrimTrailing
)

var trimmingNames = [...]string{"none", "leading", "trailing", "both"}

// String returns the lower-case name of the mode.
func (t Trimming) String() string {
	if int(t) < len(trimmingNames) {
		return trimmingNames[t]
	}
	return fmt.Sprintf("Trimming(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t Trimming) MarshalText() ([]byte, error) {
	if int(t) >= len(trimmingNames) {
		return nil, fmt.Errorf("%w: unknown trimming %d", ErrInvalidDialect, t)
	}
	return []byte(trimmingNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trimming) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	if name == "" {
		*t = TrimNone
		return nil
	}
	for i, v := range trimmingNames {
		if v == name {
			*t = Trimming(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown trimming %q", ErrInvalidDialect, name)
}

// Dialect describes the syntax of a CSV stream. A Reader copies its Dialect at
// construction; zero fields take the RFC 4180 defaults.
type Dialect struct {
	// Delimiter separates fields. Default is ','.
	Delimiter byte
	// Quote wraps fields that contain special tokens. Default is '"'.
	Quote byte
	// Escape selects the Unix dialect when it differs from Quote: the token
	// after an escape is taken literally. Zero means RFC 4180 doubled quotes.
	Escape byte
	// Newline selects the record terminators.
	Newline Newline
	// Trimming strips ASCII spaces around fields before unquoting.
	Trimming Trimming
	// LazyQuotes treats misplaced quotes as literal data instead of failing.
	LazyQuotes bool
	// MaxFieldLength limits a single field in tokens. Zero disables the check.
	MaxFieldLength int
	// MaxRecordLength limits a whole record in tokens. Zero disables the check.
	MaxRecordLength int
}

// DefaultDialect returns the RFC 4180 dialect.
func DefaultDialect() Dialect {
	return Dialect{Delimiter: ',', Quote: '"', Newline: NewlineAuto}
}

// UnixDialect returns a dialect that escapes with a backslash.
func UnixDialect() Dialect {
	return Dialect{Delimiter: ',', Quote: '"', Escape: '\\', Newline: NewlineLF}
}

// resolved fills zero tokens with their defaults.
func (d Dialect) resolved() Dialect {
	if d.Delimiter == 0 {
		d.Delimiter = ','
	}
	if d.Quote == 0 {
		d.Quote = '"'
	}
	if d.Escape == 0 {
		d.Escape = d.Quote
	}
	return d
}

// IsUnix reports whether the dialect uses a dedicated escape token.
func (d Dialect) IsUnix() bool {
	d = d.resolved()
	return d.Escape != d.Quote
}

// Validate reports whether the dialect can be tokenized unambiguously.
func (d Dialect) Validate() error {
	d = d.resolved()
	check := func(name string, c byte) error {
		switch {
		case c >= 0x80:
			return fmt.Errorf("%w: %s %q is not ASCII", ErrInvalidDialect, name, c)
		case c == '\r' || c == '\n':
			return fmt.Errorf("%w: %s cannot be a newline", ErrInvalidDialect, name)
		}
		return nil
	}
	if err := check("delimiter", d.Delimiter); err != nil {
		return err
	}
	if err := check("quote", d.Quote); err != nil {
		return err
	}
	if err := check("escape", d.Escape); err != nil {
		return err
	}
	if d.Delimiter == d.Quote || d.Delimiter == d.Escape {
		return fmt.Errorf("%w: delimiter %q collides with quote or escape", ErrInvalidDialect, d.Delimiter)
	}
	if d.Trimming != TrimNone && (d.Delimiter == ' ' || d.Quote == ' ' || d.Escape == ' ') {
		return fmt.Errorf("%w: space cannot be a token when trimming", ErrInvalidDialect)
	}
	if d.Newline > NewlineCR {
		return fmt.Errorf("%w: unknown newline %d", ErrInvalidDialect, d.Newline)
	}
	if d.Trimming > TrimBoth {
		return fmt.Errorf("%w: unknown trimming %d", ErrInvalidDialect, d.Trimming)
	}
	if d.MaxFieldLength < 0 || d.MaxRecordLength < 0 {
		return fmt.Errorf("%w: negative length limit", ErrInvalidDialect)
	}
	return nil
}

// terminator returns the bytes a writer emits after a record.
func (d Dialect) terminator() string {
	switch d.Newline {
	case NewlineCRLF:
		return "\r\n"
	case NewlineCR:
		return "\r"
	}
	return "\n"
}
