package cnb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"cnb-rates/internal/entity"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	FieldDelimiter = '|'
	TableDelimiter = "\n\n"
)

// Table maps a row label (the first field) to the remaining fields.
type Table map[string][]string

// Decode converts body from charset and drops every non-ASCII rune, so
// "Měna: USD" becomes "Mna: USD".
func Decode(body []byte, charset string) (string, error) {
	enc, err := lookupCharset(charset)
	if err != nil {
		return "", err
	}
	ascii := runes.Remove(runes.Predicate(func(r rune) bool { return r >= utf8.RuneSelf }))
	out, _, err := transform.Bytes(transform.Chain(enc.NewDecoder(), ascii), body)
	if err != nil {
		return "", &entity.MalformedDataError{What: "decode " + charset, Err: err}
	}
	return strings.ReplaceAll(string(out), "\r\n", "\n"), nil
}

func lookupCharset(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return xunicode.UTF8, nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, nil
	case "iso-8859-2", "latin2":
		return charmap.ISO8859_2, nil
	default:
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}
}

// ParseTable keeps only rows with more than one field.
func ParseTable(text string) (Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = FieldDelimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	t := make(Table)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &entity.MalformedDataError{What: "parse table", Err: err}
		}
		if len(row) > 1 {
			t[row[0]] = row[1:]
		}
	}
	return t, nil
}

// ReadTable decodes a multi-table document and parses the table at index.
func ReadTable(body []byte, charset string, index int) (Table, error) {
	text, err := Decode(body, charset)
	if err != nil {
		return nil, err
	}
	tables := strings.Split(text, TableDelimiter)
	if index < 0 || index >= len(tables) {
		return nil, &entity.MalformedDataError{What: fmt.Sprintf("table %d not present (%d tables)", index, len(tables))}
	}
	return ParseTable(tables[index])
}

// RateCell parses t[key][index], accepting a decimal comma.
func RateCell(t Table, key string, index int) (float64, error) {
	row, ok := t[key]
	if !ok {
		return 0, &entity.MalformedDataError{What: fmt.Sprintf("row %q not present", key)}
	}
	if index < 0 || index >= len(row) {
		return 0, &entity.MalformedDataError{What: fmt.Sprintf("row %q has no field %d", key, index)}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(row[index], ",", ".", 1)), 64)
	if err != nil {
		return 0, &entity.MalformedDataError{What: fmt.Sprintf("row %q field %d", key, index), Err: err}
	}
	return v, nil
}

// AmountLabel is the ASCII-folded label of the row carrying the unit amount.
func AmountLabel(currency string) string {
	return "Mna: " + currency
}

// UnitAmount reads the quoted unit amount from the "Mna: CUR|... N" row.
func UnitAmount(t Table, currency string) (float64, error) {
	label := AmountLabel(currency)
	row, ok := t[label]
	if !ok || len(row) == 0 {
		return 0, &entity.MalformedDataError{What: fmt.Sprintf("row %q not present", label)}
	}
	tokens := strings.Fields(row[0])
	if len(tokens) == 0 {
		return 0, &entity.MalformedDataError{What: fmt.Sprintf("row %q has empty amount", label)}
	}
	amount, err := strconv.ParseFloat(tokens[len(tokens)-1], 64)
	if err != nil {
		return 0, &entity.MalformedDataError{What: fmt.Sprintf("row %q amount", label), Err: err}
	}
	return amount, nil
}
