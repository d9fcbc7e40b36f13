package store

import (
	"reflect"
	"testing"
	"time"
)

func TestTokenize_SimpleWords(t *testing.T) {
	got := tokenize("DOE JOHN")
	if len(got) != 2 || got[0] != "DOE" || got[1] != "JOHN" {
		t.Errorf("tokenize simple = %v", got)
	}
}

func TestTokenize_QuotedPhrase(t *testing.T) {
	got := tokenize(`"Blood Test" OBX`)
	if len(got) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(got), got)
	}
	if got[0] != `"Blood Test"` {
		t.Errorf("token[0] = %q", got[0])
	}
}

func TestTokenize_ExtraSpaces(t *testing.T) {
	got := tokenize("  hello   world  ")
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("tokenize spaces = %v", got)
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := tokenize(""); len(got) != 0 {
		t.Errorf("tokenize empty = %v", got)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		token string
		want  Filter
	}{
		{"type:ADT^A01", Filter{FilterType, OpEquals, "ADT^A01"}},
		{"TYPE:ORU", Filter{FilterType, OpEquals, "ORU"}},
		{"source:serial", Filter{FilterSource, OpEquals, "serial"}},
		{"segment:OBX", Filter{FilterSegment, OpEquals, "OBX"}},
		{"segments:>5", Filter{FilterSegments, OpGreaterThan, "5"}},
		{"segments:<2", Filter{FilterSegments, OpLessThan, "2"}},
		{"control:MSG00001", Filter{FilterControl, OpEquals, "MSG00001"}},
		{"age:<1h", Filter{FilterAge, OpLessThan, "1h"}},
	}
	for _, tt := range tests {
		got, ok := parseFilter(tt.token)
		if !ok {
			t.Errorf("parseFilter(%q) not ok", tt.token)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFilter(%q) = %+v, want %+v", tt.token, got, tt.want)
		}
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, tok := range []string{"justtext", "type:", ":ADT", "unknown:value", "PID|1:x"} {
		if _, ok := parseFilter(tok); ok {
			t.Errorf("parseFilter(%q) should not be ok", tok)
		}
	}
}

func TestParse_Combined(t *testing.T) {
	fs := Parse(`DOE "Blood Test" type:ORU segments:>3`)
	if !reflect.DeepEqual(fs.FreeText, []string{"DOE", "Blood Test"}) {
		t.Errorf("freetext = %q", fs.FreeText)
	}
	if len(fs.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(fs.Filters))
	}
}

func TestFilterSet_IsEmpty(t *testing.T) {
	if !Parse("").IsEmpty() {
		t.Error("empty string should be empty")
	}
	if !Parse(`""`).IsEmpty() {
		t.Error("empty quotes should be empty")
	}
	if Parse("hello").IsEmpty() {
		t.Error("should not be empty")
	}
	if Parse("type:ADT").IsEmpty() {
		t.Error("should not be empty")
	}
}

func TestToSQL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		query  string
		where  string
		params []interface{}
	}{
		{"", "1=1", nil},
		{"DOE", `raw LIKE ? ESCAPE '\'`, []interface{}{"%DOE%"}},
		{"A_1", `raw LIKE ? ESCAPE '\'`, []interface{}{`%A\_1%`}},
		{"type:ADT", `message_type LIKE ? ESCAPE '\'`, []interface{}{"ADT%"}},
		{"source:TCP", "source = ?", []interface{}{"tcp"}},
		{"segment:OBX", `segment_types LIKE ? ESCAPE '\'`, []interface{}{"%,OBX,%"}},
		{"segments:>5", "segment_count > ?", []interface{}{5}},
		{"segments:abc", "1=1", nil},
		{"control:42", "control_id = ?", []interface{}{"42"}},
		{"age:<1h", "created_at > ?", []interface{}{now.Add(-time.Hour).UnixMilli()}},
		{"age:>2d", "created_at < ?", []interface{}{now.Add(-48 * time.Hour).UnixMilli()}},
		{"age:bogus", "1=1", nil},
		{"DOE source:file", `raw LIKE ? ESCAPE '\' AND source = ?`, []interface{}{"%DOE%", "file"}},
	}
	for _, tt := range tests {
		where, params := Parse(tt.query).ToSQL(now)
		if where != tt.where {
			t.Errorf("ToSQL(%q) where = %q, want %q", tt.query, where, tt.where)
		}
		if !reflect.DeepEqual(params, tt.params) {
			t.Errorf("ToSQL(%q) params = %v, want %v", tt.query, params, tt.params)
		}
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"1h", time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.input)
		if err != nil {
			t.Errorf("parseAge(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAge(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	for _, bad := range []string{"", "h", "1y", "xh"} {
		if _, err := parseAge(bad); err == nil {
			t.Errorf("parseAge(%q) should fail", bad)
		}
	}
}
