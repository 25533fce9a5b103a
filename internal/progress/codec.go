package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope field names.
const (
	FieldConfigs = "totalConfig"
	FieldRecords = "readRecord"
)

var (
	errMissingConfigs = errors.New("missing field " + FieldConfigs)
	errMissingRecords = errors.New("missing field " + FieldRecords)
)

// Contents is the decoded form of a buffer.
type Contents[C Source, R Record[R]] struct {
	Configs []C
	Records []R
}

// Codec converts between buffers and Contents.
type Codec[C Source, R Record[R]] struct {
	// Default builds the source used when no configuration survives decoding.
	Default func() C
}

// DefaultContents is the state an undecodable buffer decodes to.
func (c Codec[C, R]) DefaultContents() Contents[C, R] {
	return Contents[C, R]{
		Configs: []C{c.Default()},
		Records: []R{},
	}
}

// Decode is total: any failure yields DefaultContents.
// A buffer that decodes with an empty configuration list keeps its records
// and gains the default source.
func (c Codec[C, R]) Decode(buf []byte) Contents[C, R] {
	contents, err := c.decode(buf)
	if err != nil {
		return c.DefaultContents()
	}
	return contents
}

// decode is Decode with the failure reason kept, for logging.
func (c Codec[C, R]) decode(buf []byte) (Contents[C, R], error) {
	var env struct {
		Configs *[]json.RawMessage `json:"totalConfig"`
		Records *[]json.RawMessage `json:"readRecord"`
	}
	if err := json.Unmarshal(buf, &env); err != nil {
		return Contents[C, R]{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Configs == nil {
		return Contents[C, R]{}, errMissingConfigs
	}
	if env.Records == nil {
		return Contents[C, R]{}, errMissingRecords
	}

	configs, err := decodeEntries[C](*env.Configs)
	if err != nil {
		return Contents[C, R]{}, fmt.Errorf("decode %s: %w", FieldConfigs, err)
	}
	records, err := decodeEntries[R](*env.Records)
	if err != nil {
		return Contents[C, R]{}, fmt.Errorf("decode %s: %w", FieldRecords, err)
	}

	if len(configs) == 0 {
		configs = []C{c.Default()}
	}
	return Contents[C, R]{Configs: configs, Records: records}, nil
}

// decodeEntries decodes each entry with its own codec. A null entry is an
// error: it would otherwise become a nil record.
func decodeEntries[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("[%d]: null entry", i)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode writes the envelope. Entries whose own codec fails are left out and
// counted in dropped; the envelope itself cannot fail.
func (c Codec[C, R]) Encode(contents Contents[C, R]) (buf []byte, dropped int) {
	var b bytes.Buffer
	b.WriteString(`{"` + FieldConfigs + `":`)
	dropped += writeEntries(&b, contents.Configs)
	b.WriteString(`,"` + FieldRecords + `":`)
	dropped += writeEntries(&b, contents.Records)
	b.WriteByte('}')
	return b.Bytes(), dropped
}

func writeEntries[T any](b *bytes.Buffer, items []T) (dropped int) {
	b.WriteByte('[')
	n := 0
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			dropped++
			continue
		}
		if n > 0 {
			b.WriteByte(',')
		}
		b.Write(data)
		n++
	}
	b.WriteByte(']')
	return dropped
}
