package source

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBelongsTo(t *testing.T) {
	c := Config{Name: "a", MainPageURL: "https://site-a.test/"}

	assert.True(t, c.BelongsTo("https://site-a.test/book/42"))
	assert.True(t, c.BelongsTo("https://site-a.test/"))
	assert.False(t, c.BelongsTo("https://site-b.test/x"))
	assert.False(t, c.BelongsTo("http://site-a.test/book/42"), "scheme is part of the prefix")
	assert.False(t, c.BelongsTo(""))
}

func TestBelongsToEmptyMainPage(t *testing.T) {
	c := Config{Name: "broken"}
	assert.False(t, c.BelongsTo("https://anything.test/"))
	assert.False(t, c.BelongsTo(""))
}

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	require.NoError(t, d.Validate())
	assert.True(t, d.BelongsTo(d.MainPageURL+"book/1/"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{Name: "a", MainPageURL: "https://a.test/"}, true},
		{"valid with search", Config{Name: "a", MainPageURL: "https://a.test/", SearchURL: "https://a.test/s?q={keyword}"}, true},
		{"missing name", Config{MainPageURL: "https://a.test/"}, false},
		{"blank name", Config{Name: "  ", MainPageURL: "https://a.test/"}, false},
		{"ftp scheme", Config{Name: "a", MainPageURL: "ftp://a.test/"}, false},
		{"no host", Config{Name: "a", MainPageURL: "https:///path"}, false},
		{"bad url", Config{Name: "a", MainPageURL: "://"}, false},
		{"search without placeholder", Config{Name: "a", MainPageURL: "https://a.test/", SearchURL: "https://a.test/s"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestSearchFor(t *testing.T) {
	c := Config{Name: "a", MainPageURL: "https://a.test/", SearchURL: "https://a.test/s?q={keyword}"}
	assert.Equal(t, "https://a.test/s?q=%E5%87%A1%E4%BA%BA+book", c.SearchFor("凡人 book"))

	assert.Empty(t, Config{Name: "a"}.SearchFor("x"))
}

func TestUnmarshalJSON(t *testing.T) {
	var c Config
	err := json.Unmarshal([]byte(`{"name":"a","mainPageUrl":"https://a.test/","charset":"utf-8","extra":1}`), &c)
	require.NoError(t, err)
	assert.Equal(t, Config{Name: "a", MainPageURL: "https://a.test/", Charset: "utf-8"}, c)
}

func TestUnmarshalJSONRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing name", `{"mainPageUrl":"https://a.test/"}`, "name"},
		{"missing main page", `{"name":"a"}`, "mainPageUrl"},
		{"null name", `{"name":null,"mainPageUrl":"https://a.test/"}`, "name"},
		{"wrong type", `{"name":1,"mainPageUrl":"https://a.test/"}`, ""},
		{"not an object", `"a"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			err := json.Unmarshal([]byte(tt.input), &c)
			require.Error(t, err)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestMarshalJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Config{Name: "a", MainPageURL: "https://a.test/"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","mainPageUrl":"https://a.test/"}`, string(data))
}
