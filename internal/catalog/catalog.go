// Package catalog loads lists of reading sources from files.
//
// Supported formats, chosen by extension:
//
//	.yaml .yml   sources: [{name, main_page_url, search_url, charset}]
//	.toml        [[sources]] name = ..., main_page_url = ...
//	.json        {"sources": [{"name", "mainPageUrl", "searchUrl", "charset"}]}
//	.cue         sources: [{name, mainPageUrl, searchUrl, charset}]
//
// Every entry is checked against the embedded CUE schema (schema.cue) and
// source.Config.Validate. The progress store has no operation for editing
// sources, so hosts apply a catalog by encoding it with
// progress.EncodeSources and calling ReplaceAll.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/source"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for catalog failures.
const (
	ErrCodeRead        = "C001"
	ErrCodeFormat      = "C002"
	ErrCodeParse       = "C003"
	ErrCodeSchema      = "C004"
	ErrCodeDuplicate   = "C005"
	ErrCodeEmpty       = "C006"
	ErrCodeUnsupported = "C007"
)

// Error describes one problem in a catalog file.
type Error struct {
	Code    string
	Path    string
	Index   int // entry index, -1 when the error is not about one entry
	Message string
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: sources[%d]: %s: %s", e.Path, e.Index, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

// Loader validates catalogs against the embedded schema.
// A Loader is not safe for concurrent use.
type Loader struct {
	ctx     *cue.Context
	source  cue.Value
	catalog cue.Value
}

// NewLoader compiles the embedded schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return &Loader{
		ctx:     ctx,
		source:  schema.LookupPath(cue.ParsePath("#Source")),
		catalog: schema.LookupPath(cue.ParsePath("#Catalog")),
	}, nil
}

// LoadFile reads a catalog with a fresh Loader.
func LoadFile(path string) ([]source.Config, error) {
	l, err := NewLoader()
	if err != nil {
		return nil, err
	}
	return l.LoadFile(path)
}

// LoadFile reads, parses, and validates the catalog at path.
// All entry-level problems are reported together via errors.Join.
func (l *Loader) LoadFile(path string) ([]source.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Path: path, Index: -1, Message: err.Error()}
	}

	var configs []source.Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		configs, err = parseYAML(data)
	case ".toml":
		configs, err = parseTOML(data)
	case ".json":
		configs, err = parseJSON(data)
	case ".cue":
		configs, err = l.parseCUE(path, data)
	default:
		return nil, &Error{Code: ErrCodeUnsupported, Path: path, Index: -1,
			Message: fmt.Sprintf("unsupported catalog extension %q", ext)}
	}
	if err != nil {
		return nil, withPath(err, path)
	}

	if len(configs) == 0 {
		return nil, &Error{Code: ErrCodeEmpty, Path: path, Index: -1, Message: "catalog has no sources"}
	}

	if errs := l.Check(configs); len(errs) > 0 {
		for _, e := range errs {
			e.Path = path
		}
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, errors.Join(joined...)
	}
	return configs, nil
}

// withPath sets path on every catalog Error in err. Errors that are not
// catalog Errors become ErrCodeParse.
func withPath(err error, path string) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		out := make([]error, len(errs))
		for i, e := range errs {
			out[i] = withPath(e, path)
		}
		return errors.Join(out...)
	}
	var catErr *Error
	if errors.As(err, &catErr) {
		catErr.Path = path
		return catErr
	}
	return &Error{Code: ErrCodeParse, Path: path, Index: -1, Message: err.Error()}
}

// Check validates configs against the schema, source.Config.Validate, and
// name uniqueness. Returned errors have an empty Path.
func (l *Loader) Check(configs []source.Config) []*Error {
	var errs []*Error
	seen := make(map[string]int, len(configs))

	for i, cfg := range configs {
		v := l.source.Unify(l.ctx.Encode(schemaFields(cfg)))
		if err := v.Validate(cue.Concrete(true)); err != nil {
			errs = append(errs, &Error{Code: ErrCodeSchema, Index: i, Message: err.Error()})
			continue
		}
		if err := cfg.Validate(); err != nil {
			errs = append(errs, &Error{Code: ErrCodeSchema, Index: i, Message: err.Error()})
			continue
		}
		if first, dup := seen[cfg.Name]; dup {
			errs = append(errs, &Error{Code: ErrCodeDuplicate, Index: i,
				Message: fmt.Sprintf("name %q already used by sources[%d]", cfg.Name, first)})
			continue
		}
		seen[cfg.Name] = i
	}
	return errs
}

// schemaFields maps cfg onto the schema's field names, leaving unset
// optional fields out so they are not checked against their constraints.
func schemaFields(cfg source.Config) map[string]any {
	fields := map[string]any{
		"name":        cfg.Name,
		"mainPageUrl": cfg.MainPageURL,
	}
	if cfg.SearchURL != "" {
		fields["searchUrl"] = cfg.SearchURL
	}
	if cfg.Charset != "" {
		fields["charset"] = cfg.Charset
	}
	return fields
}

func parseYAML(data []byte) ([]source.Config, error) {
	var doc struct {
		Sources []source.Config `yaml:"sources"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, &Error{Code: ErrCodeFormat, Index: -1, Message: strings.Join(typeErr.Errors, "; ")}
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc.Sources, nil
}

func parseTOML(data []byte) ([]source.Config, error) {
	var doc struct {
		Sources []source.Config `toml:"sources"`
	}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &Error{Code: ErrCodeFormat, Index: -1,
			Message: fmt.Sprintf("unknown keys: %v", undecoded)}
	}
	return doc.Sources, nil
}

// jsonEntry mirrors source.Config's JSON form. Entries are decoded into it
// rather than into source.Config so that unknown keys are reported;
// required fields are left to Check.
type jsonEntry struct {
	Name        string `json:"name"`
	MainPageURL string `json:"mainPageUrl"`
	SearchURL   string `json:"searchUrl"`
	Charset     string `json:"charset"`
}

func parseJSON(data []byte) ([]source.Config, error) {
	var doc struct {
		Sources []json.RawMessage `json:"sources"`
	}
	if err := decodeStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	configs := make([]source.Config, 0, len(doc.Sources))
	var errs []error
	for i, raw := range doc.Sources {
		var e jsonEntry
		if err := decodeStrict(raw, &e); err != nil {
			errs = append(errs, &Error{Code: ErrCodeFormat, Index: i, Message: err.Error()})
			continue
		}
		configs = append(configs, source.Config(e))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return configs, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}

// parseCUE evaluates a CUE catalog, closes it with #Catalog, and exports the
// sources as JSON.
func (l *Loader) parseCUE(path string, data []byte) ([]source.Config, error) {
	v := l.ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}

	v = l.catalog.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{Code: ErrCodeSchema, Index: -1, Message: err.Error()}
	}

	raw, err := v.LookupPath(cue.ParsePath("sources")).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export cue sources: %w", err)
	}
	var configs []source.Config
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode cue sources: %w", err)
	}
	return configs, nil
}

// Buffer encodes configs as a store buffer with no records.
func Buffer(configs []source.Config) []byte {
	return progress.EncodeSources(configs)
}
