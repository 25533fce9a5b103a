package progress

// Source is what the store needs from a source configuration.
type Source interface {
	// BelongsTo reports whether a record URL is served by this source.
	BelongsTo(url string) bool
}

// Record is what the store needs from a read record. R is the concrete
// record type, normally a pointer so that MergeFrom can update in place.
type Record[R any] interface {
	// Identity returns the exact fields Exists compares against. The
	// source URL is also the URL checked against configured sources.
	Identity() (novelID, sourceURL string)
	// SameAs reports whether two records share an identity.
	SameAs(other R) bool
	// MergeFrom overwrites progress fields with other's.
	MergeFrom(other R)
}
