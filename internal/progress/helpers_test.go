package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/roach88/readtrack/internal/ir"
)

// prefixSource is a minimal Source for exercising the generic store.
type prefixSource struct {
	Prefix string  `json:"prefix"`
	Weight float64 `json:"weight,omitempty"`
}

func (p prefixSource) BelongsTo(url string) bool {
	return p.Prefix != "" && strings.HasPrefix(url, p.Prefix)
}

// note is a minimal Record. Poisoned notes refuse to marshal; notes with a
// Score cannot become host values because ir has no floats.
type note struct {
	ID     string  `json:"id"`
	URL    string  `json:"url"`
	Body   string  `json:"body"`
	Score  float64 `json:"score,omitempty"`
	Poison bool    `json:"poison,omitempty"`
}

func (n *note) Identity() (string, string) { return n.ID, n.URL }
func (n *note) SameAs(o *note) bool         { return n.ID == o.ID && n.URL == o.URL }
func (n *note) MergeFrom(o *note) {
	n.Body = o.Body
	n.Score = o.Score
	n.Poison = o.Poison
}

func (n *note) MarshalJSON() ([]byte, error) {
	if n.Poison {
		return nil, errors.New("poisoned note")
	}
	type plain note
	return json.Marshal((*plain)(n))
}

func noteCodec() Codec[prefixSource, *note] {
	return Codec[prefixSource, *note]{
		Default: func() prefixSource { return prefixSource{Prefix: "https://default.test/"} },
	}
}

// captureLogger returns a debug-level logger writing into buf.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mustValue parses JSON into a host value or fails the test.
func mustValue(t *testing.T, s string) ir.Value {
	t.Helper()
	v, err := ir.ParseValue([]byte(s))
	if err != nil {
		t.Fatalf("ParseValue(%s) failed: %v", s, err)
	}
	return v
}

const siteABuffer = `{"totalConfig":[{"name":"a","mainPageUrl":"https://site-a.test/"}],"readRecord":[]}`
