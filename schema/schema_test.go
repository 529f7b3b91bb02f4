package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlorentATo/pixie/internal/vizierpb"
)

func TestNewRejectsUnknownColumnType(t *testing.T) {
	_, err := New(vizierpb.Relation{Columns: []vizierpb.Column{{Name: "x", Type: vizierpb.ColumnType(99)}}})
	require.Error(t, err)
}

func TestIndexOfUnknownNameIsNegativeOne(t *testing.T) {
	s, err := New(vizierpb.Relation{Columns: []vizierpb.Column{{Name: "a", Type: vizierpb.Int64}}})
	require.NoError(t, err)
	assert.Equal(t, 0, s.IndexOf("a"))
	assert.Equal(t, -1, s.IndexOf("nope"))
}

func TestDecodeBatchEmptyEosBatch(t *testing.T) {
	s, err := New(vizierpb.Relation{Columns: []vizierpb.Column{{Name: "a", Type: vizierpb.Int64}}})
	require.NoError(t, err)

	rows, err := s.DecodeBatch(&vizierpb.RowBatchData{NumRows: 0, Eos: true})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeBatchAllScalarTypes(t *testing.T) {
	s, err := New(vizierpb.Relation{Columns: []vizierpb.Column{
		{Name: "ok", Type: vizierpb.Boolean},
		{Name: "n", Type: vizierpb.Int64},
		{Name: "id", Type: vizierpb.UInt128},
		{Name: "f", Type: vizierpb.Float64},
		{Name: "s", Type: vizierpb.String},
		{Name: "t", Type: vizierpb.Time64NS},
		{Name: "d", Type: vizierpb.Duration64NS},
	}})
	require.NoError(t, err)

	rows, err := s.DecodeBatch(&vizierpb.RowBatchData{
		NumRows: 1,
		Cols: []vizierpb.TypedColumn{
			{BooleanData: []bool{true}},
			{Int64Data: []int64{42}},
			{UInt128Data: []vizierpb.UInt128Value{{High: 123, Low: 456}}},
			{Float64Data: []float64{3.5}},
			{StringData: []string{"hi"}},
			{Time64NSData: []int64{1000000000}},
			{Duration64NSData: []int64{2000000000}},
		},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ok, _ := rows[0].Get("ok")
	n, _ := rows[0].Get("n")
	id, _ := rows[0].Get("id")
	f, _ := rows[0].Get("f")
	str, _ := rows[0].Get("s")
	ts, _ := rows[0].Get("t")
	dur, _ := rows[0].Get("d")

	assert.Equal(t, true, ok)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, "00000000-0000-007b-0000-0000000001c8", id.(interface{ String() string }).String())
	assert.Equal(t, 3.5, f)
	assert.Equal(t, "hi", str)
	assert.Equal(t, time.Unix(1, 0).UTC(), ts)
	assert.Equal(t, 2*time.Second, dur)
}

func TestUInt128BytesPacking(t *testing.T) {
	v := vizierpb.UInt128Value{High: 123, Low: 456}
	assert.Equal(t, "00000000-0000-007b-0000-0000000001c8", v.UUID().String())
}
