package progress

import (
	"github.com/roach88/readtrack/internal/ir"
	"github.com/roach88/readtrack/internal/record"
	"github.com/roach88/readtrack/internal/source"
)

// Tracker is the Store used by readtrack hosts.
type Tracker = Store[source.Config, *record.ReadRecord]

// TrackerCodec is the buffer codec for Tracker.
func TrackerCodec() Codec[source.Config, *record.ReadRecord] {
	return Codec[source.Config, *record.ReadRecord]{Default: source.Default}
}

// LoadTracker builds a Tracker from buf. See Load.
func LoadTracker(buf []byte, opts ...Option) *Tracker {
	return Load(TrackerCodec(), buf, opts...)
}

// EncodeSources builds a buffer holding configs and no records. Hosts apply
// it with ReplaceAll to install a new source list.
func EncodeSources(configs []source.Config) []byte {
	buf, _ := TrackerCodec().Encode(Contents[source.Config, *record.ReadRecord]{
		Configs: configs,
		Records: []*record.ReadRecord{},
	})
	return buf
}

// StampReadAt sets readAt to nowMillis on record objects that lack it.
// Other values are returned unchanged.
func StampReadAt(v ir.Value, nowMillis int64) ir.Value {
	obj, ok := v.(ir.Object)
	if !ok {
		return v
	}
	if _, present := obj.Get("readAt"); present {
		return v
	}
	stamped := make(ir.Object, len(obj)+1)
	for k, val := range obj {
		stamped[k] = val
	}
	stamped["readAt"] = ir.Int(nowMillis)
	return stamped
}

// RecordIdentity reads the identity fields from a record host value. Missing
// or non-string fields come back empty.
func RecordIdentity(v ir.Value) (novelID, sourceURL string) {
	obj, ok := v.(ir.Object)
	if !ok {
		return "", ""
	}
	novelID, _ = obj.StringField("novelId")
	sourceURL, _ = obj.StringField("mainPageUrl")
	return novelID, sourceURL
}

// RecordChecksum hashes the stored record with this identity, so hosts can
// report whether an admission changed it.
func RecordChecksum(t *Tracker, novelID, sourceURL string) (string, bool) {
	v, ok := t.Find(novelID, sourceURL)
	if !ok {
		return "", false
	}
	sum, err := ir.ValueChecksum(v)
	if err != nil {
		return "", false
	}
	return sum, true
}
