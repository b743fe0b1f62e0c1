// Package export serializes record sequences to the CSV dialect consumed
// by the admin frontend's download button.
package export

import (
	"bytes"
	"encoding/json"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

// Field is one key/value pair of a row. Rows are ordered sequences rather
// than maps so the header preserves first-seen key order.
type Field struct {
	Key   string
	Value any
}

// Row is one exported record.
type Row []Field

// Marshal renders rows in the frontend's CSV dialect: a header row equal
// to the union of all keys in first-seen order, then one line per row
// with every value JSON-encoded (strings quoted and escaped, numbers
// bare, missing keys as ""), fields joined by a plain comma and records
// by a newline. Zero rows produce zero bytes, not a header-only file.
func Marshal(rows []Row) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}
	var keys []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, f := range row {
			if _, ok := seen[f.Key]; ok {
				continue
			}
			seen[f.Key] = struct{}{}
			keys = append(keys, f.Key)
		}
	}

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(k)
	}
	for _, row := range rows {
		buf.WriteByte('\n')
		values := make(map[string]any, len(row))
		for _, f := range row {
			values[f.Key] = f.Value
		}
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			v, ok := values[k]
			if !ok || v == nil {
				v = ""
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
	}
	return buf.Bytes(), nil
}

// ProductRows maps products to export rows. Empty optional fields are
// omitted so the header reflects only keys that actually occur.
func ProductRows(products []model.Product) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		row := Row{
			{Key: "id", Value: p.ID},
			{Key: "name", Value: p.Name},
		}
		if p.SKU != "" {
			row = append(row, Field{Key: "sku", Value: p.SKU})
		}
		row = append(row,
			Field{Key: "price", Value: p.Price},
			Field{Key: "stock", Value: p.Stock},
		)
		if p.CategoryID != "" {
			row = append(row, Field{Key: "categoryId", Value: p.CategoryID})
		}
		if p.Image != "" {
			row = append(row, Field{Key: "image", Value: p.Image})
		}
		row = append(row, Field{Key: "updatedAt", Value: p.UpdatedAt})
		rows = append(rows, row)
	}
	return rows
}

// CategoryRows maps categories to export rows.
func CategoryRows(categories []model.Category) []Row {
	rows := make([]Row, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, Row{
			{Key: "id", Value: c.ID},
			{Key: "name", Value: c.Name},
		})
	}
	return rows
}
