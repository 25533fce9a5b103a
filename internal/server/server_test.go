package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
	"github.com/roach88/readtrack/internal/store"
	"github.com/roach88/readtrack/internal/testutil"
)

const siteA = "https://a.example/"

func newTestServer(t *testing.T, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	snaps, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { snaps.Close() })

	tracker := progress.LoadTracker(progress.EncodeSources([]source.Config{
		{Name: "a", MainPageURL: siteA},
	}))
	clock := testutil.NewDeterministicClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(tracker, snaps, opts...), snaps
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestListSources(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/sources", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"name":"a","mainPageUrl":"https://a.example/"}]`, rec.Body.String())
}

func TestListRecordsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/records", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdmitRecordPersistsSnapshot(t *testing.T) {
	s, snaps := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://a.example/book/1","chapterId":"c1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[admitResponse](t, rec)
	assert.True(t, resp.Admitted)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, int64(1), resp.Snapshot.Seq)
	assert.Equal(t, "admit", resp.Snapshot.Reason)
	want, ok := progress.RecordChecksum(s.tracker, "n1", "https://a.example/book/1")
	require.True(t, ok)
	assert.Equal(t, want, resp.Checksum)

	buf, found, err := snaps.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(buf), `"novelId":"n1"`)
}

func TestAdmitRecordStampsReadAt(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://a.example/book/1"}`)
	rec := do(t, s, http.MethodGet, "/api/records", "")

	records := decode[[]map[string]any](t, rec)
	require.Len(t, records, 1)
	// First tick of the deterministic clock.
	want := testutil.Epoch.Add(time.Second).UnixMilli()
	assert.EqualValues(t, want, records[0]["readAt"])
}

func TestAdmitRecordRejected(t *testing.T) {
	s, snaps := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://elsewhere.example/book/1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"admitted":false}`, rec.Body.String())

	_, found, err := snaps.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, found, "rejected admission must not persist")
}

func TestAdmitRecordMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/records", `{"novelId":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestAdmitRecordMergesExisting(t *testing.T) {
	s, _ := newTestServer(t)

	first := decode[admitResponse](t, do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://a.example/book/1","chapterId":"c1","readAt":1}`))
	second := decode[admitResponse](t, do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://a.example/book/1","chapterId":"c9","readAt":2}`))

	records := decode[[]map[string]any](t, do(t, s, http.MethodGet, "/api/records", ""))
	require.Len(t, records, 1)
	assert.Equal(t, "c9", records[0]["chapterId"])
	assert.NotEmpty(t, first.Checksum)
	assert.NotEqual(t, first.Checksum, second.Checksum)
}

func TestExists(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://a.example/book/1"}`)

	rec := do(t, s, http.MethodGet, "/api/records/exists?novelId=n1&sourceUrl=https://a.example/book/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":true}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/records/exists?novelId=n1&sourceUrl=https://a.example/book/1/", "")
	assert.JSONEq(t, `{"exists":false}`, rec.Body.String())
}

func TestExistsRequiresBothParams(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/records/exists?novelId=n1", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"novelId and sourceUrl are required"}`, rec.Body.String())
}

func TestExportAndReplace(t *testing.T) {
	s, _ := newTestServer(t)

	replacement := `{"totalConfig":[{"name":"b","mainPageUrl":"https://b.example/"}],` +
		`"readRecord":[{"novelId":"x","mainPageUrl":"https://b.example/x","novelName":"","author":"","chapterId":"","chapterName":"","readAt":3}]}`

	rec := do(t, s, http.MethodPut, "/api/data", replacement)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[replaceResponse](t, rec)
	assert.Equal(t, 1, resp.Sources)
	assert.Equal(t, 1, resp.Records)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, "replace", resp.Snapshot.Reason)

	rec = do(t, s, http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, replacement, rec.Body.String())
}

func TestReplaceWithGarbageResetsToDefault(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/api/data", "not json")
	require.Equal(t, http.StatusOK, rec.Code)

	sources := decode[[]map[string]any](t, do(t, s, http.MethodGet, "/api/sources", ""))
	require.Len(t, sources, 1)
	assert.Equal(t, source.Default().Name, sources[0]["name"])
}

func TestSnapshots(t *testing.T) {
	s, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/records", `{"novelId":"n1","mainPageUrl":"https://a.example/1"}`)
	do(t, s, http.MethodPost, "/api/records", `{"novelId":"n2","mainPageUrl":"https://a.example/2"}`)

	all := decode[[]store.Snapshot](t, do(t, s, http.MethodGet, "/api/snapshots", ""))
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].Seq)

	limited := decode[[]store.Snapshot](t, do(t, s, http.MethodGet, "/api/snapshots?limit=1", ""))
	assert.Len(t, limited, 1)

	rec := do(t, s, http.MethodGet, "/api/snapshots?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithKeepPrunes(t *testing.T) {
	s, snaps := newTestServer(t, WithKeep(2))
	for _, id := range []string{"n1", "n2", "n3", "n4"} {
		do(t, s, http.MethodPost, "/api/records",
			`{"novelId":"`+id+`","mainPageUrl":"https://a.example/`+id+`"}`)
	}

	history, err := snaps.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(4), history[0].Seq)
}

func TestWithoutSnapshotStore(t *testing.T) {
	tracker := progress.LoadTracker(nil)
	s := New(tracker, nil)

	rec := do(t, s, http.MethodPost, "/api/records",
		`{"novelId":"n1","mainPageUrl":"https://www.xbiquge.so/book/1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[admitResponse](t, rec)
	assert.True(t, resp.Admitted)
	assert.Nil(t, resp.Snapshot)

	rec = do(t, s, http.MethodGet, "/api/snapshots", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestBodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t)

	big := bytes.Repeat([]byte("a"), maxBufferBytes+1)
	rec := do(t, s, http.MethodPut, "/api/data", string(big))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// failingSnapshots is a SnapshotStore whose writes always fail.
type failingSnapshots struct{}

func (failingSnapshots) Save(context.Context, []byte, string) (store.Snapshot, bool, error) {
	return store.Snapshot{}, false, errors.New("disk full")
}

func (failingSnapshots) History(context.Context, int) ([]store.Snapshot, error) {
	return nil, nil
}

func (failingSnapshots) Prune(context.Context, int) (int64, error) {
	return 0, nil
}

func TestFailedSaveRollsBack(t *testing.T) {
	initial := progress.EncodeSources([]source.Config{{Name: "a", MainPageURL: siteA}})
	s := New(progress.LoadTracker(initial), failingSnapshots{})

	rec := do(t, s, http.MethodPost, "/api/records", `{"novelId":"42","mainPageUrl":"https://a.example/42","readAt":1}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/records/exists?novelId=42&sourceUrl=https://a.example/42", "")
	assert.JSONEq(t, `{"exists":false}`, rec.Body.String())

	rec = do(t, s, http.MethodPut, "/api/data", `{"totalConfig":[],"readRecord":[]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(initial), rec.Body.String())
}
