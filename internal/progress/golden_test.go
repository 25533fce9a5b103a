package progress

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// To regenerate: go test ./internal/progress -run Golden -update
func TestSerializeGolden(t *testing.T) {
	s := LoadTracker(nil)
	s.ReplaceAll([]byte(`{"totalConfig":[
		{"name":"a","mainPageUrl":"https://site-a.test/"},
		{"name":"b","mainPageUrl":"https://site-b.test/","searchUrl":"https://site-b.test/s?q={keyword}"}
	],"readRecord":[]}`))

	require.True(t, s.AdmitRecord(mustValue(t, `{"novelId":"42","mainPageUrl":"https://site-a.test/book/42",
		"novelName":"Forty Two","author":"anon","chapterId":"c1","chapterName":"One","readAt":1700000000000}`)))
	require.True(t, s.AdmitRecord(mustValue(t, `{"novelId":"7","mainPageUrl":"https://site-b.test/book/7",
		"novelName":"Seven","chapterId":"c3","readAt":1700000100000}`)))
	require.True(t, s.AdmitRecord(mustValue(t, `{"novelId":"42","mainPageUrl":"https://site-a.test/book/42",
		"novelName":"Forty Two","author":"anon","chapterId":"c2","chapterName":"Two","readAt":1700000200000}`)))
	require.False(t, s.AdmitRecord(mustValue(t, `{"novelId":"1","mainPageUrl":"https://site-c.test/book/1"}`)))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tracker_serialized", s.Serialize())
}

func TestDefaultBufferGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "default_buffer", LoadTracker(nil).Serialize())
}
