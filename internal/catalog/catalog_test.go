package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
)

func expectedSources() []source.Config {
	return []source.Config{
		source.Default(),
		{Name: "siteA", MainPageURL: "https://a.example/"},
	}
}

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_AllFormats(t *testing.T) {
	for _, name := range []string{"sources.yaml", "sources.toml", "sources.json", "sources.cue"} {
		t.Run(name, func(t *testing.T) {
			got, err := LoadFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, expectedSources(), got)
		})
	}
}

func TestLoadFile_YMLExtension(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "sources.yaml"))
	require.NoError(t, err)
	path := writeCatalog(t, "sources.yml", string(data))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := writeCatalog(t, "sources.ini", "name=x")

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeUnsupported, catErr.Code)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeRead, catErr.Code)
}

func TestLoadFile_ParseError(t *testing.T) {
	path := writeCatalog(t, "bad.json", `{"sources": [`)

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeParse, catErr.Code)
	assert.Equal(t, path, catErr.Path)
}

func TestLoadFile_Empty(t *testing.T) {
	path := writeCatalog(t, "empty.yaml", "sources: []\n")

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeEmpty, catErr.Code)
}

func TestLoadFile_SchemaViolations(t *testing.T) {
	path := writeCatalog(t, "bad.yaml", `sources:
  - name: ok
    main_page_url: https://ok.example/
  - name: ""
    main_page_url: https://empty-name.example/
  - name: ftp
    main_page_url: ftp://files.example/
  - name: nokeyword
    main_page_url: https://k.example/
    search_url: https://k.example/search
  - name: charset
    main_page_url: https://c.example/
    charset: latin9
`)

	_, err := LoadFile(path)
	require.Error(t, err)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	errs := joined.Unwrap()
	require.Len(t, errs, 4)

	indexes := make([]int, 0, len(errs))
	for _, e := range errs {
		var catErr *Error
		require.ErrorAs(t, e, &catErr)
		assert.Equal(t, ErrCodeSchema, catErr.Code)
		assert.Equal(t, path, catErr.Path)
		indexes = append(indexes, catErr.Index)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, indexes)
}

func TestLoadFile_DuplicateNames(t *testing.T) {
	path := writeCatalog(t, "dup.toml", `[[sources]]
name = "a"
main_page_url = "https://a.example/"

[[sources]]
name = "a"
main_page_url = "https://a2.example/"
`)

	_, err := LoadFile(path)
	require.Error(t, err)

	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeDuplicate, catErr.Code)
	assert.Equal(t, 1, catErr.Index)
	assert.Contains(t, catErr.Error(), "sources[0]")
}

func TestLoadFile_TOMLUnknownKey(t *testing.T) {
	path := writeCatalog(t, "typo.toml", `[[sources]]
name = "a"
main_page_ur = "https://a.example/"
`)

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeFormat, catErr.Code)
	assert.Contains(t, catErr.Message, "main_page_ur")
}

func TestLoadFile_YAMLUnknownKey(t *testing.T) {
	path := writeCatalog(t, "typo.yaml", `sources:
  - name: a
    main_page_url: https://a.example/
    serch_url: https://a.example/s?q={keyword}
`)

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeFormat, catErr.Code)
	assert.Equal(t, path, catErr.Path)
	assert.Contains(t, catErr.Message, "serch_url")
}

func TestLoadFile_JSONUnknownKey(t *testing.T) {
	path := writeCatalog(t, "typo.json", `{"sources": [
  {"name": "a", "mainPageUrl": "https://a.example/"},
  {"name": "b", "mainPageUrl": "https://b.example/", "serchUrl": "https://b.example/s?q={keyword}"},
  {"name": "c", "mainPageUrl": "https://c.example/", "mirror": "https://d.example/"}
]}`)

	_, err := LoadFile(path)
	require.Error(t, err)

	var catErrs []*Error
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var catErr *Error
		require.ErrorAs(t, e, &catErr)
		catErrs = append(catErrs, catErr)
	}
	require.Len(t, catErrs, 2)
	assert.Equal(t, 1, catErrs[0].Index)
	assert.Equal(t, ErrCodeFormat, catErrs[0].Code)
	assert.Equal(t, path, catErrs[0].Path)
	assert.Contains(t, catErrs[0].Message, "serchUrl")
	assert.Equal(t, 2, catErrs[1].Index)
	assert.Contains(t, catErrs[1].Message, "mirror")
}

func TestLoadFile_JSONUnknownTopLevelKey(t *testing.T) {
	path := writeCatalog(t, "typo.json", `{"source": [{"name": "a", "mainPageUrl": "https://a.example/"}]}`)

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeParse, catErr.Code)
	assert.Contains(t, catErr.Message, `unknown field "source"`)
}

func TestLoadFile_CUEClosedSchema(t *testing.T) {
	path := writeCatalog(t, "extra.cue", `sources: [{
	name:        "a"
	mainPageUrl: "https://a.example/"
	mirror:      "https://b.example/"
}]
`)

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeSchema, catErr.Code)
	assert.Equal(t, -1, catErr.Index)
}

func TestLoadFile_CUECompileError(t *testing.T) {
	path := writeCatalog(t, "broken.cue", "sources: [\n")

	_, err := LoadFile(path)
	var catErr *Error
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, ErrCodeParse, catErr.Code)
}

func TestCheck_ValidConfigs(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)
	assert.Empty(t, l.Check(expectedSources()))
}

func TestBuffer_ReplacesSources(t *testing.T) {
	tracker := progress.LoadTracker(nil)
	tracker.ReplaceAll(Buffer(expectedSources()))

	assert.Equal(t, 2, tracker.NumConfigs())
	assert.Equal(t, 0, tracker.NumRecords())
	assert.JSONEq(t,
		`{"totalConfig":[
			{"name":"biquge","mainPageUrl":"https://www.xbiquge.so/","searchUrl":"https://www.xbiquge.so/modules/article/search.php?searchkey={keyword}","charset":"gbk"},
			{"name":"siteA","mainPageUrl":"https://a.example/"}
		],"readRecord":[]}`,
		string(tracker.Serialize()))
}
