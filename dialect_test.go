package lanecsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect Dialect
		ok      bool
	}{
		{"zeroValue", Dialect{}, true},
		{"unix", UnixDialect(), true},
		{"tabs", Dialect{Delimiter: '\t', Trimming: TrimBoth}, true},
		{"delimiterIsQuote", Dialect{Delimiter: '"'}, false},
		{"delimiterIsEscape", Dialect{Delimiter: '\\', Escape: '\\'}, false},
		{"newlineDelimiter", Dialect{Delimiter: '\n'}, false},
		{"nonASCIIQuote", Dialect{Quote: 0xA7}, false},
		{"spaceDelimiterWhileTrimming", Dialect{Delimiter: ' ', Trimming: TrimLeading}, false},
		{"spaceDelimiter", Dialect{Delimiter: ' '}, true},
		{"unknownNewline", Dialect{Newline: Newline(7)}, false},
		{"unknownTrimming", Dialect{Trimming: Trimming(4)}, false},
		{"negativeLimit", Dialect{MaxFieldLength: -1}, false},
	}
	for _, tc := range tests {
		err := tc.dialect.Validate()
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDialect, tc.name)
		}
	}

	assert.True(t, UnixDialect().IsUnix())
	assert.False(t, DefaultDialect().IsUnix())
	assert.False(t, Dialect{Escape: '"'}.IsUnix())
}

func TestNewlineText(t *testing.T) {
	t.Parallel()

	for _, n := range []Newline{NewlineAuto, NewlineLF, NewlineCRLF, NewlineCR} {
		text, err := n.MarshalText()
		require.NoError(t, err)
		var back Newline
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, n, back)
	}

	aliases := map[string]Newline{"": NewlineAuto, "any": NewlineAuto, `\n`: NewlineLF, `\r\n`: NewlineCRLF, `\r`: NewlineCR, " CRLF ": NewlineCRLF}
	for in, want := range aliases {
		var n Newline
		require.NoError(t, n.UnmarshalText([]byte(in)), in)
		assert.Equal(t, want, n, in)
	}

	var n Newline
	assert.ErrorIs(t, n.UnmarshalText([]byte("nel")), ErrInvalidDialect)
	_, err := Newline(9).MarshalText()
	assert.Error(t, err)
}

func TestDialectYAML(t *testing.T) {
	t.Parallel()

	d, err := ParseDialectYAML([]byte(`
delimiter: "\t"
quote: "'"
escape: '\\'
newline: crlf
trimming: both
lazy_quotes: true
max_field_length: 1024
`))
	require.NoError(t, err)
	assert.Equal(t, Dialect{
		Delimiter:      '\t',
		Quote:          '\'',
		Escape:         '\\',
		Newline:        NewlineCRLF,
		Trimming:       TrimBoth,
		LazyQuotes:     true,
		MaxFieldLength: 1024,
	}, d)

	_, err = ParseDialectYAML([]byte("delimiter: ab\n"))
	assert.ErrorIs(t, err, ErrInvalidDialect)

	_, err = ParseDialectYAML([]byte("newline: [\n"))
	assert.Error(t, err)
}

func TestDialectJSON(t *testing.T) {
	t.Parallel()

	d, err := ParseDialectJSON([]byte(`{"delimiter":"tab","newline":"lf","trimming":"leading"}`))
	require.NoError(t, err)
	assert.Equal(t, byte('\t'), d.Delimiter)
	assert.Equal(t, byte('"'), d.Quote)
	assert.Equal(t, byte('"'), d.Escape)
	assert.Equal(t, NewlineLF, d.Newline)
	assert.Equal(t, TrimLeading, d.Trimming)

	_, err = ParseDialectJSON([]byte(`{"trimming":"sideways"}`))
	assert.Error(t, err)
}

func TestDialectConfigRoundTrip(t *testing.T) {
	t.Parallel()

	for _, d := range []Dialect{DefaultDialect(), UnixDialect(), {Delimiter: ';', Quote: '\'', Newline: NewlineCR, MaxRecordLength: 10}} {
		back, err := d.Config().Dialect()
		require.NoError(t, err)
		assert.Equal(t, d.resolved(), back)
	}
}
