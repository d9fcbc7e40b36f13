package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thinkwright/hl7v/internal/config"
	"github.com/thinkwright/hl7v/internal/reference"
	"github.com/thinkwright/hl7v/internal/store"
)

const admit = "MSH|^~\\&|ADT1|GOOD HEALTH|GHH LAB|ELAB|200801010000||ADT^A01|MSG00001|P|2.5.1\rPID|1||PATID1234^^^ADT1||EVERYMAN^ADAM\rPV1|1|I"

type fakeHistory struct {
	saved  []string
	source string
	query  string
	limit  int
	err    error
}

func (f *fakeHistory) Save(raw, source string) (store.HistoryEntry, error) {
	if f.err != nil {
		return store.HistoryEntry{}, f.err
	}
	f.saved = append(f.saved, raw)
	f.source = source
	return store.HistoryEntry{ID: int64(len(f.saved))}, nil
}

func (f *fakeHistory) Search(query string, limit int) ([]store.HistoryEntry, error) {
	f.query, f.limit = query, limit
	if f.err != nil {
		return nil, f.err
	}
	return []store.HistoryEntry{{
		ID:           7,
		Raw:          admit,
		Source:       store.SourcePaste,
		MessageType:  "ADT^A01",
		ControlID:    "MSG00001",
		SegmentCount: 3,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}, nil
}

func testCatalog(t *testing.T) *reference.Catalog {
	t.Helper()
	cat, err := reference.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return cat
}

func newTestServer(t *testing.T, h History) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	return NewServer(testCatalog(t), h, log, config.DefaultConfig())
}

func do(t *testing.T, s *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("status field = %q, want ok", got["status"])
	}
}

func TestSplitPlainText(t *testing.T) {
	h := &fakeHistory{}
	s := newTestServer(t, h)

	rec := do(t, s, http.MethodPost, "/api/split", "text/plain", admit)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decode[splitResponse](t, rec)
	if resp.Count != 3 || len(resp.Segments) != 3 {
		t.Fatalf("count = %d, segments = %d, want 3", resp.Count, len(resp.Segments))
	}
	for i, want := range []string{"MSH", "PID", "PV1"} {
		if resp.Segments[i].Type != want {
			t.Errorf("segment %d type = %q, want %q", i, resp.Segments[i].Type, want)
		}
	}
	if resp.HistoryID != 1 {
		t.Errorf("history_id = %d, want 1", resp.HistoryID)
	}
	if len(h.saved) != 1 || h.source != store.SourceAPI {
		t.Errorf("saved %d messages with source %q", len(h.saved), h.source)
	}
}

func TestSplitJSON(t *testing.T) {
	s := newTestServer(t, nil)
	body, _ := json.Marshal(splitRequest{Message: "PID|1||12345\nOBX|1|NM"})

	rec := do(t, s, http.MethodPost, "/api/split", "application/json; charset=utf-8", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decode[splitResponse](t, rec)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if got := resp.Segments[0].Fields; len(got) != 4 || got[3] != "12345" {
		t.Errorf("PID fields = %q", got)
	}
	if resp.HistoryID != 0 {
		t.Errorf("history_id = %d without a history store", resp.HistoryID)
	}
}

func TestSplitRejectsEmpty(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty body", "text/plain", ""},
		{"whitespace", "text/plain", " \r\n\t "},
		{"empty json", "application/json", `{"message":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHistory{}
			s := newTestServer(t, h)
			rec := do(t, s, http.MethodPost, "/api/split", tt.contentType, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decode[map[string]string](t, rec); got["error"] != "message is empty" {
				t.Errorf("error = %q", got["error"])
			}
			if len(h.saved) != 0 {
				t.Error("empty message should not be recorded")
			}
		})
	}
}

func TestSplitInvalidJSON(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/api/split", "application/json", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSplitHistoryFailureStillSplits(t *testing.T) {
	s := newTestServer(t, &fakeHistory{err: errors.New("disk full")})
	rec := do(t, s, http.MethodPost, "/api/split", "text/plain", admit)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decode[splitResponse](t, rec); resp.HistoryID != 0 || resp.Count != 3 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListSegments(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/segments", "", "")
	all := decode[struct {
		Segments []segmentInfo `json:"segments"`
		Count    int           `json:"count"`
	}](t, rec)
	if want := testCatalog(t).Len(); all.Count != want {
		t.Errorf("count = %d, want %d", all.Count, want)
	}

	rec = do(t, s, http.MethodGet, "/api/segments?q=pat", "", "")
	filtered := decode[struct {
		Segments []segmentInfo `json:"segments"`
		Count    int           `json:"count"`
	}](t, rec)
	codes := map[string]bool{}
	for _, seg := range filtered.Segments {
		codes[seg.Code] = true
		if seg.DocURL == "" {
			t.Errorf("%s has no doc_url", seg.Code)
		}
	}
	if !codes["PID"] || !codes["PV1"] {
		t.Errorf("q=pat returned %v, want PID and PV1", codes)
	}
	if codes["OBX"] {
		t.Error("q=pat should not include OBX")
	}
}

func TestGetSegment(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/segments/PID", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[segmentInfo](t, rec)
	if got.Code != "PID" {
		t.Errorf("code = %q, want PID", got.Code)
	}
	if want := config.DefaultConfig().DocURL("PID"); got.DocURL != want {
		t.Errorf("doc_url = %q, want %q", got.DocURL, want)
	}

	rec = do(t, s, http.MethodGet, "/api/segments/ZZZ", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code status = %d, want 404", rec.Code)
	}
}

func TestHistoryRoute(t *testing.T) {
	h := &fakeHistory{}
	s := newTestServer(t, h)

	rec := do(t, s, http.MethodGet, "/api/history?q=type:ADT&limit=5", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h.query != "type:ADT" || h.limit != 5 {
		t.Errorf("search(%q, %d)", h.query, h.limit)
	}
	resp := decode[struct {
		Messages []historyItem `json:"messages"`
		Count    int           `json:"count"`
	}](t, rec)
	if resp.Count != 1 || resp.Messages[0].ControlID != "MSG00001" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Messages[0].CreatedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("created_at = %q", resp.Messages[0].CreatedAt)
	}

	for _, bad := range []string{"0", "-3", "ten"} {
		rec := do(t, s, http.MethodGet, "/api/history?limit="+bad, "", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestHistoryRouteAbsentWithoutStore(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/api/history", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
