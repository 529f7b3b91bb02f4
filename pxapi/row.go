package pxapi

import "github.com/FlorentATo/pixie/schema"

// Row is one decoded record from a table, addressable by column name
// or position.
type Row = schema.Row

// Schema is the ordered column list for one table.
type Schema = schema.Schema

// RowCallback is invoked once per row of a subscribed table, in
// enqueue order. A returned error aborts the run: it becomes the
// session's terminal error.
type RowCallback func(Row) error
