// Package schema turns table-metadata messages into column schemas and
// row-batch messages into ordered, typed rows.
package schema

import (
	"time"

	"github.com/FlorentATo/pixie/internal/vizierpb"
	"github.com/FlorentATo/pixie/pxerror"
)

// ColumnType is the decoded, user-facing scalar type of one column.
type ColumnType int

const (
	Boolean ColumnType = iota
	Int64
	UInt128
	Float64
	String
	Time64NS
	Duration64NS
)

// Column is one (name, type) pair in table order.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the ordered, immutable column list for one table.
type Schema struct {
	Columns []Column
	index   map[string]int
}

// New decodes a wire Relation into a Schema. An unrecognized column
// type is a protocol error.
func New(rel vizierpb.Relation) (*Schema, error) {
	s := &Schema{
		Columns: make([]Column, len(rel.Columns)),
		index:   make(map[string]int, len(rel.Columns)),
	}
	for i, c := range rel.Columns {
		t, err := fromWireType(c.Type)
		if err != nil {
			return nil, err
		}
		s.Columns[i] = Column{Name: c.Name, Type: t}
		s.index[c.Name] = i
	}
	return s, nil
}

func fromWireType(t vizierpb.ColumnType) (ColumnType, error) {
	switch t {
	case vizierpb.Boolean:
		return Boolean, nil
	case vizierpb.Int64:
		return Int64, nil
	case vizierpb.UInt128:
		return UInt128, nil
	case vizierpb.Float64:
		return Float64, nil
	case vizierpb.String:
		return String, nil
	case vizierpb.Time64NS:
		return Time64NS, nil
	case vizierpb.Duration64NS:
		return Duration64NS, nil
	default:
		return 0, pxerror.Protocolf("unknown column type %d", t)
	}
}

// IndexOf returns the column position for name, or -1 if absent.
func (s *Schema) IndexOf(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Row is one decoded record: a flat slice of scalars in schema column
// order, plus a pointer back to the schema for name-indexed lookup.
// This avoids a per-row map allocation.
type Row struct {
	schema *Schema
	Values []any
}

// Get looks up a column by name. The second return is false if the
// column name is unknown.
func (r Row) Get(name string) (any, bool) {
	i := r.schema.IndexOf(name)
	if i < 0 {
		return nil, false
	}
	return r.Values[i], true
}

// At returns the value at a column position.
func (r Row) At(i int) any {
	return r.Values[i]
}

// Schema exposes the row's owning schema.
func (r Row) Schema() *Schema {
	return r.schema
}

// DecodeBatch decodes a wire row batch into an ordered slice of Rows
// using this schema. Rows are returned in exactly the order the batch
// carried them.
func (s *Schema) DecodeBatch(batch *vizierpb.RowBatchData) ([]Row, error) {
	n := int(batch.NumRows)
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{schema: s, Values: make([]any, len(s.Columns))}
	}
	if n == 0 {
		// A trailing eos batch commonly carries no column data at all;
		// nothing to decode into an already-empty row slice.
		return rows, nil
	}
	for colIdx, col := range s.Columns {
		raw := batch.Cols[colIdx]
		if err := decodeColumn(col.Type, raw, rows, colIdx); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func decodeColumn(t ColumnType, raw vizierpb.TypedColumn, rows []Row, colIdx int) error {
	switch t {
	case Boolean:
		for i, v := range raw.BooleanData {
			rows[i].Values[colIdx] = v
		}
	case Int64:
		for i, v := range raw.Int64Data {
			rows[i].Values[colIdx] = v
		}
	case UInt128:
		for i, v := range raw.UInt128Data {
			rows[i].Values[colIdx] = v.UUID()
		}
	case Float64:
		for i, v := range raw.Float64Data {
			rows[i].Values[colIdx] = v
		}
	case String:
		for i, v := range raw.StringData {
			rows[i].Values[colIdx] = v
		}
	case Time64NS:
		for i, v := range raw.Time64NSData {
			rows[i].Values[colIdx] = time.Unix(0, v).UTC()
		}
	case Duration64NS:
		for i, v := range raw.Duration64NSData {
			rows[i].Values[colIdx] = time.Duration(v)
		}
	default:
		return pxerror.Protocolf("unknown column type %d during decode", t)
	}
	return nil
}
