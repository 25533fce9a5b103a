// Package record defines per-novel reading progress.
package record

import (
	"encoding/json"
	"fmt"
)

// ReadRecord is the reading position for one novel on one source.
//
// Identity is (NovelID, MainPageURL). Every other field is progress state
// that MergeFrom overwrites.
type ReadRecord struct {
	NovelID     string `json:"novelId"`
	MainPageURL string `json:"mainPageUrl"`
	NovelName   string `json:"novelName"`
	Author      string `json:"author"`
	ChapterID   string `json:"chapterId"`
	ChapterName string `json:"chapterName"`
	// ReadAt is Unix milliseconds of the last read.
	ReadAt int64 `json:"readAt"`
}

// Identity returns the fields that make two records the same record.
func (r *ReadRecord) Identity() (novelID, sourceURL string) {
	return r.NovelID, r.MainPageURL
}

// SameAs reports whether r and other share an identity.
func (r *ReadRecord) SameAs(other *ReadRecord) bool {
	return r.NovelID == other.NovelID && r.MainPageURL == other.MainPageURL
}

// MergeFrom overwrites r's progress fields with other's. Identity fields are
// left untouched.
func (r *ReadRecord) MergeFrom(other *ReadRecord) {
	r.NovelName = other.NovelName
	r.Author = other.Author
	r.ChapterID = other.ChapterID
	r.ChapterName = other.ChapterName
	r.ReadAt = other.ReadAt
}

// UnmarshalJSON requires both identity fields to be present as strings; an
// empty string is a valid identity component. Progress fields may be absent
// and decode to their zero values.
func (r *ReadRecord) UnmarshalJSON(data []byte) error {
	type plain ReadRecord
	var raw struct {
		plain
		NovelID     *string `json:"novelId"`
		MainPageURL *string `json:"mainPageUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.NovelID == nil {
		return fmt.Errorf("read record: missing field novelId")
	}
	if raw.MainPageURL == nil {
		return fmt.Errorf("read record: missing field mainPageUrl")
	}
	*r = ReadRecord(raw.plain)
	r.NovelID = *raw.NovelID
	r.MainPageURL = *raw.MainPageURL
	return nil
}
