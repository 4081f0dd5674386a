package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
)

var errNotRecords = errors.New("json input must be an array of objects")

// readJSON reads an array of flat objects. Columns appear in first-seen key
// order; keys missing from an object are null.
func readJSON(r io.Reader) (*dataset.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var (
		header []string
		index  = map[string]int{}
		rows   [][]string
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		row := make([]string, len(header))
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("reading json key: %w", err)
			}
			key, _ := tok.(string)
			var raw any
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("reading json value for %q: %w", key, err)
			}
			i, ok := index[key]
			if !ok {
				i = len(header)
				index[key] = i
				header = append(header, key)
			}
			for len(row) <= i {
				row = append(row, "")
			}
			cell, err := jsonCell(raw)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", key, err)
			}
			row[i] = cell
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return dataset.MustTable(), nil
	}
	return fromText(header, rows)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: unexpected %v", errNotRecords, tok)
	}
	return nil
}

func jsonCell(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("%w: nested value", errNotRecords)
	}
}

// writeJSON writes one object per row with keys in schema order.
func writeJSON(w io.Writer, t *dataset.Table) error {
	names := t.Schema.Names()
	keys := make([][]byte, len(names))
	for i, n := range names {
		k, err := json.Marshal(n)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for r, row := range t.Rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  {")
		for i, v := range row {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.Write(keys[i])
			buf.WriteString(": ")
			b, err := v.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encoding row %d: %w", r+1, err)
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
	}
	if len(t.Rows) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}
