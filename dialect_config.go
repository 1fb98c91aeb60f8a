package lanecsv

import (
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DialectConfig is the file representation of a Dialect. Tokens are written
// as one-character strings; escape sequences like "\t" are accepted.
type DialectConfig struct {
	Delimiter       string   `yaml:"delimiter" json:"delimiter"`
	Quote           string   `yaml:"quote" json:"quote"`
	Escape          string   `yaml:"escape" json:"escape"`
	Newline         Newline  `yaml:"newline" json:"newline"`
	Trimming        Trimming `yaml:"trimming" json:"trimming"`
	LazyQuotes      bool     `yaml:"lazy_quotes" json:"lazy_quotes"`
	MaxFieldLength  int      `yaml:"max_field_length" json:"max_field_length"`
	MaxRecordLength int      `yaml:"max_record_length" json:"max_record_length"`
}

// Dialect converts the configuration and validates the result.
func (c DialectConfig) Dialect() (Dialect, error) {
	var d Dialect
	var err error
	if d.Delimiter, err = configToken("delimiter", c.Delimiter); err != nil {
		return Dialect{}, err
	}
	if d.Quote, err = configToken("quote", c.Quote); err != nil {
		return Dialect{}, err
	}
	if d.Escape, err = configToken("escape", c.Escape); err != nil {
		return Dialect{}, err
	}
	d.Newline = c.Newline
	d.Trimming = c.Trimming
	d.LazyQuotes = c.LazyQuotes
	d.MaxFieldLength = c.MaxFieldLength
	d.MaxRecordLength = c.MaxRecordLength
	if err := d.Validate(); err != nil {
		return Dialect{}, err
	}
	return d.resolved(), nil
}

// Config returns the file representation of d.
func (d Dialect) Config() DialectConfig {
	d = d.resolved()
	c := DialectConfig{
		Delimiter:       string(d.Delimiter),
		Quote:           string(d.Quote),
		Newline:         d.Newline,
		Trimming:        d.Trimming,
		LazyQuotes:      d.LazyQuotes,
		MaxFieldLength:  d.MaxFieldLength,
		MaxRecordLength: d.MaxRecordLength,
	}
	if d.Escape != d.Quote {
		c.Escape = string(d.Escape)
	}
	return c
}

// ParseDialectYAML decodes a YAML dialect document.
func ParseDialectYAML(data []byte) (Dialect, error) {
	var c DialectConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Dialect{}, fmt.Errorf("lanecsv: decode yaml dialect: %w", err)
	}
	return c.Dialect()
}

// ParseDialectJSON decodes a JSON dialect document.
func ParseDialectJSON(data []byte) (Dialect, error) {
	var c DialectConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return Dialect{}, fmt.Errorf("lanecsv: decode json dialect: %w", err)
	}
	return c.Dialect()
}

func configToken(name, s string) (byte, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	case `\\`:
		return '\\', nil
	}
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %s must be a single ASCII character, got %q", ErrInvalidDialect, name, s)
	}
	return s[0], nil
}
