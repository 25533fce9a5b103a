package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/readtrack/internal/ir"
	"github.com/roach88/readtrack/internal/store"
)

// summary counts the tracker's collections after a whole-buffer change.
type summary struct {
	Sources int `json:"sources"`
	Records int `json:"records"`
}

func (s summary) String() string {
	return fmt.Sprintf("%d sources, %d records", s.Sources, s.Records)
}

// sourceList renders AllConfigs output.
type sourceList []ir.Value

func (l sourceList) String() string {
	if len(l) == 0 {
		return "No sources."
	}
	return table([]string{"NAME", "MAIN PAGE"}, l, func(obj ir.Object) []string {
		return []string{field(obj, "name"), field(obj, "mainPageUrl")}
	})
}

// recordList renders AllRecords output.
type recordList []ir.Value

func (l recordList) String() string {
	if len(l) == 0 {
		return "No records."
	}
	return table([]string{"NOVEL", "NAME", "CHAPTER", "READ AT", "SOURCE URL"}, l, func(obj ir.Object) []string {
		readAt := ""
		if ms, ok := obj["readAt"].(ir.Int); ok {
			readAt = time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339)
		}
		return []string{
			field(obj, "novelId"),
			field(obj, "novelName"),
			field(obj, "chapterName"),
			readAt,
			field(obj, "mainPageUrl"),
		}
	})
}

// searchHit is one source's search URL for a keyword.
type searchHit struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

type searchList []searchHit

func (l searchList) String() string {
	if len(l) == 0 {
		return "No sources with a search URL."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tURL")
	for _, hit := range l {
		fmt.Fprintf(w, "%s\t%s\n", hit.Source, hit.URL)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// historyList renders snapshot metadata.
type historyList []store.Snapshot

func (l historyList) String() string {
	if len(l) == 0 {
		return "No snapshots."
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tID\tCREATED\tSIZE\tREASON")
	for _, snap := range l {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			snap.Seq, snap.ID, snap.CreatedAt.Format(time.RFC3339), snap.Size, snap.Reason)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

func table(header []string, rows []ir.Value, cells func(ir.Object) []string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		obj, ok := row.(ir.Object)
		if !ok {
			continue
		}
		fmt.Fprintln(w, strings.Join(cells(obj), "\t"))
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

func field(obj ir.Object, key string) string {
	s, _ := obj.StringField(key)
	return s
}
