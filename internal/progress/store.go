package progress

import (
	"io"
	"log/slog"

	"github.com/roach88/readtrack/internal/ir"
)

// Store is the in-memory aggregate of sources and read records.
//
// Invariants:
//   - configs is never empty
//   - every record matched some config when it was admitted
//   - no two records share an identity
type Store[C Source, R Record[R]] struct {
	codec   Codec[C, R]
	logger  *slog.Logger
	configs []C
	records []R
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for fallback and drop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Load builds a Store from buf. It never fails: an undecodable buffer yields
// the codec's default contents.
func Load[C Source, R Record[R]](codec Codec[C, R], buf []byte, opts ...Option) *Store[C, R] {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[C, R]{codec: codec, logger: o.logger}
	s.apply(buf)
	return s
}

// ReplaceAll decodes buf with the same fallback as Load and overwrites both
// collections. Records absent from buf are discarded even if they would still
// match a surviving source.
func (s *Store[C, R]) ReplaceAll(buf []byte) {
	s.apply(buf)
}

func (s *Store[C, R]) apply(buf []byte) {
	contents, err := s.codec.decode(buf)
	if err != nil {
		s.logger.Warn("buffer undecodable, using defaults",
			"bytes", len(buf),
			"error", err,
		)
		contents = s.codec.DefaultContents()
	}
	s.configs = contents.Configs
	s.records = contents.Records
	s.logger.Debug("store loaded",
		"configs", len(s.configs),
		"records", len(s.records),
	)
}

// Serialize encodes the current state for the host to persist.
func (s *Store[C, R]) Serialize() []byte {
	buf, dropped := s.codec.Encode(Contents[C, R]{Configs: s.configs, Records: s.records})
	if dropped > 0 {
		s.logger.Warn("entities omitted from serialized buffer", "dropped", dropped)
	}
	return buf
}

// AllConfigs returns every source as a host value, in stored order.
// Sources that fail to convert are omitted.
func (s *Store[C, R]) AllConfigs() []ir.Value {
	out, dropped := collectValues(s.configs)
	if dropped > 0 {
		s.logger.Debug("sources omitted from listing", "dropped", dropped)
	}
	return out
}

// AllRecords returns every record as a host value, in stored order.
// Records that fail to convert are omitted.
func (s *Store[C, R]) AllRecords() []ir.Value {
	out, dropped := collectValues(s.records)
	if dropped > 0 {
		s.logger.Debug("records omitted from listing", "dropped", dropped)
	}
	return out
}

// AdmitRecord inserts or merges the record described by v.
//
// It returns false, leaving the store unchanged, when v does not convert to a
// record or when no configured source claims the record's URL. Otherwise the
// first record with the same identity is merged in place, or the candidate is
// appended, and AdmitRecord returns true.
func (s *Store[C, R]) AdmitRecord(v ir.Value) bool {
	candidate, ok := FromValue[R](v)
	if !ok {
		s.logger.Debug("record rejected: not convertible")
		return false
	}

	_, url := candidate.Identity()
	if !s.admits(url) {
		s.logger.Debug("record rejected: no matching source", "url", url)
		return false
	}

	for _, existing := range s.records {
		if existing.SameAs(candidate) {
			existing.MergeFrom(candidate)
			return true
		}
	}
	s.records = append(s.records, candidate)
	return true
}

func (s *Store[C, R]) admits(url string) bool {
	for _, c := range s.configs {
		if c.BelongsTo(url) {
			return true
		}
	}
	return false
}

// Exists reports whether a record has exactly this identity. No
// normalization is applied to either field.
func (s *Store[C, R]) Exists(novelID, sourceURL string) bool {
	for _, r := range s.records {
		id, url := r.Identity()
		if id == novelID && url == sourceURL {
			return true
		}
	}
	return false
}

// Find returns the record with exactly this identity as a host value. ok is
// false when no record matches or the record fails to convert.
func (s *Store[C, R]) Find(novelID, sourceURL string) (v ir.Value, ok bool) {
	for _, r := range s.records {
		id, url := r.Identity()
		if id == novelID && url == sourceURL {
			return ToValue(r)
		}
	}
	return nil, false
}

// NumConfigs returns the number of stored sources.
func (s *Store[C, R]) NumConfigs() int { return len(s.configs) }

// NumRecords returns the number of stored records.
func (s *Store[C, R]) NumRecords() int { return len(s.records) }
