package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jmylchreest/gomyth/pkg/mythtv/record"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recordMap decodes every field of r into a name keyed map for JSON output.
func recordMap(r record.Typed) (map[string]any, error) {
	values, err := r.Base().Values()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(values))
	for _, fv := range values {
		switch v := fv.Value.(type) {
		case time.Time:
			out[fv.Field.Name] = v
		case fmt.Stringer:
			// Enum and flag groups print their constant names.
			out[fv.Field.Name] = v.String()
		default:
			out[fv.Field.Name] = v
		}
	}
	return out, nil
}

// writeRecordsJSON writes records as a JSON array of decoded field maps.
func writeRecordsJSON[T record.Typed](w io.Writer, records []T) error {
	maps := make([]map[string]any, 0, len(records))
	for _, r := range records {
		m, err := recordMap(r)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", r.Base().Key(), err)
		}
		maps = append(maps, m)
	}
	return writeJSON(w, maps)
}
