package document

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Format selects a serialization.
type Format int

const (
	JSON Format = iota
	YAML
	ZstdJSON
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case ZstdJSON:
		return "json.zst"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".json.zst"), strings.HasSuffix(name, ".zst"):
		return ZstdJSON, nil
	case strings.HasSuffix(name, ".json"):
		return JSON, nil
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		return YAML, nil
	default:
		return 0, fmt.Errorf("document: unknown file type %q", path)
	}
}

// Tree converts the document into plain maps, slices and scalars. Numbers are
// always float64, the shape encoding/json produces.
func (d *Document) Tree() map[string]any {
	out := make(map[string]any, d.Len())
	for k, v := range d.fields {
		out[k] = v
	}
	for k, arr := range d.arrays {
		items := make([]any, len(arr))
		for i, v := range arr {
			items[i] = v
		}
		out[k] = items
	}
	for k, sub := range d.subs {
		out[k] = sub.Tree()
	}
	return out
}

// FromTree builds a document from decoded JSON or YAML.
func FromTree(tree map[string]any) (*Document, error) {
	d := New()
	for k, v := range tree {
		if err := d.setAny(k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Document) setAny(key string, v any) error {
	switch val := v.(type) {
	case map[string]any:
		sub, err := FromTree(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d.SetSub(key, sub)
	case []any:
		arr := make([]float64, len(val))
		for i, item := range val {
			f, ok := toFloat(item)
			if !ok {
				return fmt.Errorf("%s[%d]: %T is not a number: %w", key, i, item, ErrType)
			}
			arr[i] = f
		}
		d.arrays[key] = arr
	case []float64:
		d.SetArray(key, val)
	case []float32:
		d.SetFloat32s(key, val)
	case bool:
		d.SetBool(key, val)
	case string:
		d.SetText(key, val)
	case nil:
		return fmt.Errorf("%s: null value: %w", key, ErrType)
	default:
		f, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("%s: unsupported %T: %w", key, v, ErrType)
		}
		d.SetFloat(key, f)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Encode writes the document to w.
func Encode(w io.Writer, d *Document, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d.Tree())
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d.Tree()); err != nil {
			return err
		}
		return enc.Close()
	case ZstdJSON:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		bw := bufio.NewWriterSize(zw, 64*1024)
		if err := json.NewEncoder(bw).Encode(d.Tree()); err != nil {
			_ = zw.Close()
			return err
		}
		if err := bw.Flush(); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	default:
		return fmt.Errorf("document: cannot encode %v", format)
	}
}

// Decode reads a document from r.
func Decode(r io.Reader, format Format) (*Document, error) {
	tree, err := DecodeTree(r, format)
	if err != nil {
		return nil, err
	}
	return FromTree(tree)
}

// DecodeTree reads the raw tree without converting it. Callers validating
// against a JSON schema use this before FromTree.
func DecodeTree(r io.Reader, format Format) (map[string]any, error) {
	var tree map[string]any
	switch format {
	case JSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&tree); err != nil {
			return nil, fmt.Errorf("document: decode json: %w", err)
		}
	case YAML:
		var raw map[string]any
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("document: decode yaml: %w", err)
		}
		tree = normalize(raw).(map[string]any)
	case ZstdJSON:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		dec := json.NewDecoder(bufio.NewReader(zr))
		dec.UseNumber()
		if err := dec.Decode(&tree); err != nil {
			return nil, fmt.Errorf("document: decode json.zst: %w", err)
		}
	default:
		return nil, fmt.Errorf("document: cannot decode %v", format)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

// normalize turns YAML numbers into float64 so the tree has the same shape
// as one decoded from JSON.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case nil:
		return nil
	default:
		if f, ok := toFloat(val); ok {
			return f
		}
		return val
	}
}

// Marshal encodes d into a byte slice.
func Marshal(d *Document, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a document from data.
func Unmarshal(data []byte, format Format) (*Document, error) {
	return Decode(bytes.NewReader(data), format)
}

// ReadFile loads a document, choosing the format from the extension.
func ReadFile(path string) (*Document, error) {
	tree, err := ReadTree(path)
	if err != nil {
		return nil, err
	}
	d, err := FromTree(tree)
	if err != nil {
		return nil, fmt.Errorf("document: %s: %w", path, err)
	}
	return d, nil
}

// ReadTree loads the raw tree of a document file.
func ReadTree(path string) (map[string]any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeTree(f, format)
}

// WriteFile stores a document, choosing the format from the extension. The
// file is written to a temporary sibling first and renamed into place.
func WriteFile(path string, d *Document) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Encode(f, d, format); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("document: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
