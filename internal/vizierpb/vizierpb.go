// Package vizierpb holds the hand-authored stand-ins for the generated
// protobuf messages and gRPC client stub that the real data-plane RPC
// would produce. Wire encoding, the .proto source, and the codegen
// pipeline are out of scope; this package only fixes the shape the
// rest of the module programs against.
package vizierpb

import (
	"context"

	"github.com/google/uuid"
)

// ColumnType enumerates the scalar types a Relation column can carry.
type ColumnType int

const (
	DataTypeUnknown ColumnType = iota
	Boolean
	Int64
	UInt128
	Float64
	String
	Time64NS
	Duration64NS
)

// Column is one entry in a table's Relation (schema).
type Column struct {
	Name string
	Type ColumnType
}

// Relation is the ordered column list a MetaData message carries.
type Relation struct {
	Columns []Column
}

// UInt128Value is the wire shape of a 128-bit value, rendered by callers
// as a canonical UUID string.
type UInt128Value struct {
	High uint64
	Low  uint64
}

// Bytes renders the 128-bit value as 16 big-endian bytes suitable for
// uuid.FromBytes.
func (v UInt128Value) Bytes() [16]byte {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v.High >> (8 * (7 - i)))
		b[8+i] = byte(v.Low >> (8 * (7 - i)))
	}
	return b
}

// UUID returns the value as a uuid.UUID, whose String form is the
// canonical hyphenated UUID.
func (v UInt128Value) UUID() uuid.UUID {
	return uuid.UUID(v.Bytes())
}

// TypedColumn holds one column's worth of decoded-or-undecoded values; only
// one of the typed slices is populated, matching which ColumnType the
// owning Relation declared for this position.
type TypedColumn struct {
	BooleanData      []bool
	Int64Data        []int64
	UInt128Data      []UInt128Value
	Float64Data      []float64
	StringData       []string
	Time64NSData     []int64
	Duration64NSData []int64
}

// RowBatchData is one columnar slab of rows for a single table.
type RowBatchData struct {
	TableID uuid.UUID
	Cols    []TypedColumn
	NumRows int64
	Eos     bool
}

// StatusCode mirrors the small subset of gRPC-style status codes the
// data plane actually uses.
type StatusCode int

const (
	CodeOK StatusCode = iota
	CodeInvalidArgument
	CodeInternal
)

// CompilerError is one entry of a compile-time diagnostic.
type CompilerError struct {
	Line    int64
	Column  int64
	Message string
}

// Status is the terminal (or no-op OK) status envelope.
type Status struct {
	Code           StatusCode
	Message        string
	CompilerErrors []CompilerError
}

// MetaData announces a new table id/name/schema triple.
type MetaData struct {
	TableID  uuid.UUID
	Name     string
	Relation Relation
}

// Data carries a row batch for an already-announced table. Execution
// stats are not modeled.
type Data struct {
	Batch *RowBatchData
}

// ExecuteScriptResponse is the tagged-union response envelope: exactly
// one of Status, MetaData, Data is non-nil.
type ExecuteScriptResponse struct {
	Status   *Status
	MetaData *MetaData
	Data     *Data
}

// ExecuteScriptRequest is the request the data-plane stream is opened
// with.
type ExecuteScriptRequest struct {
	QueryStr  string
	ClusterID uuid.UUID
}

// ResponseReceiver is the minimal surface this module needs from a
// gRPC server-streaming client (vizier.VizierService_ExecuteScriptClient
// in the real system). It requires only Recv, so any stream client with
// a matching Recv method satisfies it.
type ResponseReceiver interface {
	Recv() (*ExecuteScriptResponse, error)
}

// VizierServiceClient is the narrow data-plane RPC surface the
// connector needs, standing in for a generated
// vizierpb.VizierServiceClient.
type VizierServiceClient interface {
	ExecuteScript(ctx context.Context, req *ExecuteScriptRequest) (ResponseReceiver, error)
}
