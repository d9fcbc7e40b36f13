package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

type FilterField int

const (
	FilterType FilterField = iota
	FilterSource
	FilterSegment
	FilterSegments
	FilterControl
	FilterAge
)

type FilterOp int

const (
	OpEquals FilterOp = iota
	OpGreaterThan
	OpLessThan
)

type Filter struct {
	Field FilterField
	Op    FilterOp
	Value string
}

type FilterSet struct {
	FreeText []string
	Filters  []Filter
}

// Parse parses a history query into free-text terms and structured filters.
// Examples:
//
//	"DOE JOHN"            → FreeText: ["DOE", "JOHN"]
//	"type:ADT source:tcp" → Filters: [{FilterType, OpEquals, "ADT"}, ...]
//	"segment:OBX segments:>4"
//	"age:<1h"             → Filters: [{FilterAge, OpLessThan, "1h"}]
//
// Quoted phrases are kept together as one free-text term.
func Parse(query string) *FilterSet {
	fs := &FilterSet{}

	for _, tok := range tokenize(query) {
		if f, ok := parseFilter(tok); ok {
			fs.Filters = append(fs.Filters, f)
			continue
		}
		term := strings.Trim(tok, `"`)
		if term != "" {
			fs.FreeText = append(fs.FreeText, term)
		}
	}
	return fs
}

// tokenize splits a query string respecting quoted phrases.
func tokenize(query string) []string {
	var tokens []string
	var current strings.Builder
	inQuote := false

	for _, r := range query {
		switch {
		case r == '"':
			inQuote = !inQuote
			current.WriteRune(r)
		case unicode.IsSpace(r) && !inQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// parseFilter attempts to parse a token as field:value or field:>value.
func parseFilter(token string) (Filter, bool) {
	idx := strings.Index(token, ":")
	if idx < 1 || idx == len(token)-1 {
		return Filter{}, false
	}

	field := strings.ToLower(token[:idx])
	value := token[idx+1:]

	var f Filter

	switch field {
	case "type":
		f.Field = FilterType
	case "source":
		f.Field = FilterSource
	case "segment":
		f.Field = FilterSegment
	case "segments":
		f.Field = FilterSegments
	case "control":
		f.Field = FilterControl
	case "age":
		f.Field = FilterAge
	default:
		return Filter{}, false
	}

	if strings.HasPrefix(value, ">") {
		f.Op = OpGreaterThan
		f.Value = value[1:]
	} else if strings.HasPrefix(value, "<") {
		f.Op = OpLessThan
		f.Value = value[1:]
	} else {
		f.Op = OpEquals
		f.Value = value
	}

	return f, true
}

// ToSQL generates a WHERE clause (without "WHERE") over the messages table
// and its parameters. Every free-text term must occur in the raw text.
func (fs *FilterSet) ToSQL(now time.Time) (string, []interface{}) {
	var conditions []string
	var params []interface{}

	for _, term := range fs.FreeText {
		conditions = append(conditions, `raw LIKE ? ESCAPE '\'`)
		params = append(params, "%"+escapeLike(term)+"%")
	}

	for _, f := range fs.Filters {
		cond, p := filterToSQL(f, now)
		if cond != "" {
			conditions = append(conditions, cond)
			params = append(params, p...)
		}
	}

	if len(conditions) == 0 {
		return "1=1", nil
	}
	return strings.Join(conditions, " AND "), params
}

// IsEmpty returns true if there are no filters or free text.
func (fs *FilterSet) IsEmpty() bool {
	return len(fs.FreeText) == 0 && len(fs.Filters) == 0
}

func filterToSQL(f Filter, now time.Time) (string, []interface{}) {
	switch f.Field {
	case FilterType:
		// type:ADT matches ADT^A01, ADT^A08, ...
		return `message_type LIKE ? ESCAPE '\'`, []interface{}{escapeLike(f.Value) + "%"}

	case FilterSource:
		return "source = ?", []interface{}{strings.ToLower(f.Value)}

	case FilterSegment:
		return `segment_types LIKE ? ESCAPE '\'`, []interface{}{"%," + escapeLike(f.Value) + ",%"}

	case FilterControl:
		return "control_id = ?", []interface{}{f.Value}

	case FilterSegments:
		n, err := strconv.Atoi(f.Value)
		if err != nil {
			return "", nil
		}
		switch f.Op {
		case OpGreaterThan:
			return "segment_count > ?", []interface{}{n}
		case OpLessThan:
			return "segment_count < ?", []interface{}{n}
		default:
			return "segment_count = ?", []interface{}{n}
		}

	case FilterAge:
		dur, err := parseAge(f.Value)
		if err != nil {
			return "", nil
		}
		cutoff := now.Add(-dur).UnixMilli()
		switch f.Op {
		case OpGreaterThan:
			// age:>1h means saved more than 1 hour ago
			return "created_at < ?", []interface{}{cutoff}
		default:
			// age:<1h and age:1h mean saved within the last hour
			return "created_at > ?", []interface{}{cutoff}
		}
	}

	return "", nil
}

// parseAge parses a duration like "1h", "30m", "7d", "2w".
func parseAge(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid age: %s", s)
	}

	unit := s[len(s)-1]
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, err
	}

	switch unit {
	case 'm':
		return time.Duration(num) * time.Minute, nil
	case 'h':
		return time.Duration(num) * time.Hour, nil
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown unit: %c", unit)
	}
}

// escapeLike escapes LIKE wildcards so HL7 text such as "A_1" or "50%" is
// matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
