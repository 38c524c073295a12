package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"github.com/dream-anchor/creatoros-reels/internal/composer"
	"github.com/dream-anchor/creatoros-reels/internal/selector"
	"github.com/dream-anchor/creatoros-reels/internal/vision"
	"github.com/dream-anchor/creatoros-reels/models"
)

type fakeRow map[string]interface{}

// mutation records one write the fake database received, so tests can
// assert that a handler performed no writes at all.
type mutation struct {
	Method string
	Table  string
	Body   []byte
}

// fakeDB is an in-memory stand-in for the PostgREST endpoint the Supabase
// client talks to. It understands just the request shapes the handlers
// produce: eq filters, object-mode selects, counted updates, representation
// inserts and filtered deletes.
type fakeDB struct {
	mu        sync.Mutex
	tables    map[string][]fakeRow
	mutations []mutation
	server    *httptest.Server
}

func newFakeDB(t *testing.T) *fakeDB {
	t.Helper()
	db := &fakeDB{tables: map[string][]fakeRow{}}
	db.server = httptest.NewServer(http.HandlerFunc(db.handle))
	t.Cleanup(db.server.Close)
	return db
}

func (db *fakeDB) client(t *testing.T) *supa.Client {
	t.Helper()
	client, err := supa.NewClient(db.server.URL, "test-key", nil)
	if err != nil {
		t.Fatalf("creating supabase client: %v", err)
	}
	return client
}

func (db *fakeDB) seed(table string, rows ...fakeRow) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables[table] = append(db.tables[table], rows...)
}

func (db *fakeDB) writes() []mutation {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]mutation, len(db.mutations))
	copy(out, db.mutations)
	return out
}

func (db *fakeDB) lastWrite(method, table string) ([]byte, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := len(db.mutations) - 1; i >= 0; i-- {
		m := db.mutations[i]
		if m.Method == method && m.Table == table {
			return m.Body, true
		}
	}
	return nil, false
}

func (db *fakeDB) rows(table string) []fakeRow {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]fakeRow, len(db.tables[table]))
	copy(out, db.tables[table])
	return out
}

func (db *fakeDB) handle(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if table == r.URL.Path || strings.Contains(table, "/") {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}

	match := func(row fakeRow) (bool, error) {
		for key, vals := range r.URL.Query() {
			if key == "select" || key == "order" {
				continue
			}
			want, ok := strings.CutPrefix(vals[0], "eq.")
			if !ok {
				return false, fmt.Errorf("unsupported filter %s=%s", key, vals[0])
			}
			if fmt.Sprintf("%v", row[key]) != want {
				return false, nil
			}
		}
		return true, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		var matched []fakeRow
		for _, row := range db.tables[table] {
			ok, err := match(row)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if ok {
				matched = append(matched, row)
			}
		}
		if strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object") {
			if len(matched) != 1 {
				http.Error(w, `{"message":"JSON object requested, multiple (or no) rows returned"}`, http.StatusNotAcceptable)
				return
			}
			w.Header().Set("Content-Range", "0-0/1")
			json.NewEncoder(w).Encode(matched[0])
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("0-%d/%d", len(matched), len(matched)))
		if matched == nil {
			matched = []fakeRow{}
		}
		json.NewEncoder(w).Encode(matched)

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		db.mutations = append(db.mutations, mutation{Method: r.Method, Table: table, Body: body})
		var rows []fakeRow
		if err := json.Unmarshal(body, &rows); err != nil {
			var row fakeRow
			if err := json.Unmarshal(body, &row); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			rows = []fakeRow{row}
		}
		for i := range rows {
			if _, ok := rows[i]["id"]; !ok {
				rows[i]["id"] = uuid.NewString()
			}
			db.tables[table] = append(db.tables[table], rows[i])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rows)

	case http.MethodPatch:
		body, _ := io.ReadAll(r.Body)
		db.mutations = append(db.mutations, mutation{Method: r.Method, Table: table, Body: body})
		var patch fakeRow
		if err := json.Unmarshal(body, &patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		count := 0
		for i, row := range db.tables[table] {
			ok, err := match(row)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if !ok {
				continue
			}
			for k, v := range patch {
				db.tables[table][i][k] = v
			}
			count++
		}
		w.Header().Set("Content-Range", fmt.Sprintf("0-%d/%d", count, count))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("[]"))

	case http.MethodDelete:
		db.mutations = append(db.mutations, mutation{Method: r.Method, Table: table})
		var kept []fakeRow
		for _, row := range db.tables[table] {
			ok, err := match(row)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if !ok {
				kept = append(kept, row)
			}
		}
		db.tables[table] = kept
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("[]"))

	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

// Stub pipeline dependencies.

type stubVision struct {
	mu    sync.Mutex
	calls int
	judge func(call int, imageBase64 string) (vision.Judgement, error)
}

func (s *stubVision) JudgeFrame(_ context.Context, imageBase64 string) (vision.Judgement, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()
	return s.judge(call, imageBase64)
}

type stubTranscriber struct {
	transcript *models.Transcript
	err        error
}

func (s *stubTranscriber) Transcribe(context.Context, []byte, string) (*models.Transcript, error) {
	return s.transcript, s.err
}

type stubPlanner struct {
	segments []selector.Segment
	err      error
}

func (s *stubPlanner) Select(context.Context, selector.Request) ([]selector.Segment, error) {
	return s.segments, s.err
}

type stubRenderer struct {
	jobID string
	err   error
	calls int
}

func (s *stubRenderer) Submit(context.Context, composer.Composition) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.jobID, nil
}

type stubDownloader struct {
	mu    sync.Mutex
	calls int
	data  []byte
	err   error
}

func (s *stubDownloader) Fetch(context.Context, string, int64) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func (s *stubDownloader) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	err     error
}

func (s *stubStore) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploads == nil {
		s.uploads = map[string][]byte{}
	}
	s.uploads[path] = data
	return "https://storage.example.com/reels/" + path, nil
}

func (s *stubStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

func (s *stubStore) PublicURL(path string) string {
	return "https://storage.example.com/reels/" + path
}

var errStub = errors.New("stub failure")

func newTestHandler(t *testing.T, db *fakeDB) *ApplicationHandler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewApplicationHandler(
		logger,
		db.client(t),
		&stubVision{judge: func(int, string) (vision.Judgement, error) {
			return vision.Judgement{Score: 5, Description: "a frame", EnergyLevel: "medium"}, nil
		}},
		&stubTranscriber{},
		&stubPlanner{},
		&stubRenderer{jobID: "job-1"},
		&stubDownloader{data: []byte("mp4 bytes")},
		&stubStore{},
		"https://api.example.com/api/v1/callbacks/render",
	)
	return h
}
