package pxapi

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlorentATo/pixie/internal/vizierpb"
	"github.com/FlorentATo/pixie/pxerror"
)

// fakeReceiver replays a fixed response sequence, honoring ctx
// cancellation the way a real gRPC stream would.
type fakeReceiver struct {
	ctx       context.Context
	responses []*vizierpb.ExecuteScriptResponse
	idx       int
	tailErr   error
}

func (f *fakeReceiver) Recv() (*vizierpb.ExecuteScriptResponse, error) {
	if err := f.ctx.Err(); err != nil {
		return nil, err
	}
	if f.idx >= len(f.responses) {
		if f.tailErr != nil {
			return nil, f.tailErr
		}
		return nil, io.EOF
	}
	r := f.responses[f.idx]
	f.idx++
	return r, nil
}

type fakeDataPlane struct {
	responses []*vizierpb.ExecuteScriptResponse
}

func (f *fakeDataPlane) ExecuteScript(ctx context.Context, req *vizierpb.ExecuteScriptRequest) (vizierpb.ResponseReceiver, error) {
	return &fakeReceiver{ctx: ctx, responses: f.responses}, nil
}

func connWith(responses []*vizierpb.ExecuteScriptResponse) *VizierConn {
	return &VizierConn{clusterID: uuid.New(), dataPlane: &fakeDataPlane{responses: responses}}
}

func meta(id uuid.UUID, name string, cols ...vizierpb.Column) *vizierpb.ExecuteScriptResponse {
	return &vizierpb.ExecuteScriptResponse{MetaData: &vizierpb.MetaData{
		TableID: id, Name: name, Relation: vizierpb.Relation{Columns: cols},
	}}
}

func dataBatch(id uuid.UUID, eos bool, numRows int64, cols ...vizierpb.TypedColumn) *vizierpb.ExecuteScriptResponse {
	return &vizierpb.ExecuteScriptResponse{Data: &vizierpb.Data{Batch: &vizierpb.RowBatchData{
		TableID: id, Cols: cols, NumRows: numRows, Eos: eos,
	}}}
}

// scenario 1, driven end to end through Script.AddCallback + Run.
func TestScriptAddCallbackRun(t *testing.T) {
	httpID := uuid.New()
	conn := connWith([]*vizierpb.ExecuteScriptResponse{
		meta(httpID, "http",
			vizierpb.Column{Name: "http_resp_body", Type: vizierpb.String},
			vizierpb.Column{Name: "http_resp_status", Type: vizierpb.Int64}),
		dataBatch(httpID, false, 1,
			vizierpb.TypedColumn{StringData: []string{"foo"}},
			vizierpb.TypedColumn{Int64Data: []int64{200}}),
		dataBatch(httpID, true, 0),
	})

	script := conn.CreateScript("df = px.DataFrame('http')")
	var calls int
	err := script.AddCallback("http", func(r Row) error {
		calls++
		body, _ := r.Get("http_resp_body")
		assert.Equal(t, "foo", body)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, script.Run())
	assert.Equal(t, 1, calls)
}

// Pull-iterator delivery in row order, driven through Subscribe +
// RunAsync + TableSub.Next.
func TestScriptSubscribePullIterator(t *testing.T) {
	httpID := uuid.New()
	conn := connWith([]*vizierpb.ExecuteScriptResponse{
		meta(httpID, "http", vizierpb.Column{Name: "n", Type: vizierpb.Int64}),
		dataBatch(httpID, false, 3, vizierpb.TypedColumn{Int64Data: []int64{1, 2, 3}}),
		dataBatch(httpID, true, 0),
	})

	script := conn.CreateScript("df = px.DataFrame('http')")
	sub, err := script.Subscribe("http")
	require.NoError(t, err)

	done := script.RunAsync()

	var got []int64
	for {
		row, ok := sub.Next()
		if !ok {
			break
		}
		v, _ := row.Get("n")
		got = append(got, v.(int64))
	}
	require.NoError(t, sub.Err())
	require.NoError(t, <-done)
	assert.Equal(t, []int64{1, 2, 3}, got)
}

// Single-subscription: a second Subscribe for the same name fails.
func TestSubscribeTwiceFails(t *testing.T) {
	conn := connWith(nil)
	script := conn.CreateScript("noop")
	_, err := script.Subscribe("http")
	require.NoError(t, err)

	_, err = script.Subscribe("http")
	require.Error(t, err)
	perr, ok := pxerror.As(err)
	require.True(t, ok)
	assert.Equal(t, pxerror.KindLifecycleError, perr.Kind)
}

// Subscribe and AddCallback for the same name are mutually exclusive.
func TestSubscribeThenCallbackSameNameFails(t *testing.T) {
	conn := connWith(nil)
	script := conn.CreateScript("noop")
	_, err := script.Subscribe("http")
	require.NoError(t, err)

	err = script.AddCallback("http", func(Row) error { return nil })
	require.Error(t, err)
}

// Single-run idempotence: after Run returns, configuration methods are
// rejected with LifecycleError and the session is observably inert.
func TestSingleRunIdempotence(t *testing.T) {
	conn := connWith([]*vizierpb.ExecuteScriptResponse{})
	script := conn.CreateScript("noop")
	require.NoError(t, script.Run())

	_, err := script.Subscribe("http")
	require.Error(t, err)
	perr, ok := pxerror.As(err)
	require.True(t, ok)
	assert.Equal(t, pxerror.KindLifecycleError, perr.Kind)

	err = script.AddCallback("http", func(Row) error { return nil })
	require.Error(t, err)

	err = <-script.RunAsync()
	require.Error(t, err)
}

// Run() requires every subscribed table to be consumed by a callback;
// an outstanding pull subscription must use RunAsync instead.
func TestRunRejectsOutstandingPullSubscription(t *testing.T) {
	conn := connWith(nil)
	script := conn.CreateScript("noop")
	_, err := script.Subscribe("http")
	require.NoError(t, err)

	err = script.Run()
	require.Error(t, err)
	perr, ok := pxerror.As(err)
	require.True(t, ok)
	assert.Equal(t, pxerror.KindLifecycleError, perr.Kind)
}

// Callback exception: the error propagates as the run's terminal error.
func TestCallbackExceptionPropagates(t *testing.T) {
	httpID := uuid.New()
	conn := connWith([]*vizierpb.ExecuteScriptResponse{
		meta(httpID, "http", vizierpb.Column{Name: "n", Type: vizierpb.Int64}),
		dataBatch(httpID, false, 1, vizierpb.TypedColumn{Int64Data: []int64{1}}),
		dataBatch(httpID, true, 0),
	})

	script := conn.CreateScript("noop")
	boom := assert.AnError
	err := script.AddCallback("http", func(Row) error { return boom })
	require.NoError(t, err)

	err = script.Run()
	require.Error(t, err)
	perr, ok := pxerror.As(err)
	require.True(t, ok)
	assert.Equal(t, pxerror.KindCallbackError, perr.Kind)
}

// SubscribeAllTables yields a TableSub per table, in metadata-arrival
// order, and per-name Subscribe still wins for a name used by both.
func TestSubscribeAllTablesYieldsPerTableHandlesAndPerNameWins(t *testing.T) {
	httpID, statsID := uuid.New(), uuid.New()
	conn := connWith([]*vizierpb.ExecuteScriptResponse{
		meta(httpID, "http", vizierpb.Column{Name: "n", Type: vizierpb.Int64}),
		meta(statsID, "stats", vizierpb.Column{Name: "n", Type: vizierpb.Int64}),
		dataBatch(httpID, false, 1, vizierpb.TypedColumn{Int64Data: []int64{11}}),
		dataBatch(statsID, false, 1, vizierpb.TypedColumn{Int64Data: []int64{22}}),
		dataBatch(httpID, true, 0),
		dataBatch(statsID, true, 0),
	})

	script := conn.CreateScript("noop")
	httpSub, err := script.Subscribe("http")
	require.NoError(t, err)
	gen, err := script.SubscribeAllTables()
	require.NoError(t, err)

	done := script.RunAsync()

	statsSub, ok := gen.Next()
	require.True(t, ok)
	assert.Equal(t, "stats", statsSub.TableName)

	_, ok = gen.Next()
	assert.False(t, ok)
	require.NoError(t, gen.Err())

	row, ok := httpSub.Next()
	require.True(t, ok)
	v, _ := row.Get("n")
	assert.Equal(t, int64(11), v)

	srow, ok := statsSub.Next()
	require.True(t, ok)
	sv, _ := srow.Get("n")
	assert.Equal(t, int64(22), sv)

	require.NoError(t, <-done)
}

// Subscription to a missing table surfaces TableNotReceived.
func TestSubscriptionToMissingTableRunAsync(t *testing.T) {
	httpID := uuid.New()
	conn := connWith([]*vizierpb.ExecuteScriptResponse{
		meta(httpID, "http", vizierpb.Column{Name: "n", Type: vizierpb.Int64}),
		dataBatch(httpID, true, 0),
	})

	script := conn.CreateScript("noop")
	sub, err := script.Subscribe("foobar")
	require.NoError(t, err)

	err = <-script.RunAsync()
	require.Error(t, err)
	perr, ok := pxerror.As(err)
	require.True(t, ok)
	assert.Equal(t, pxerror.KindTableNotReceived, perr.Kind)

	_, subOK := sub.Next()
	assert.False(t, subOK)
	assert.Equal(t, err, sub.Err())
}

// Results subscribes and starts the run together, returning a
// RowIterator that advances both.
func TestResultsRowIterator(t *testing.T) {
	httpID := uuid.New()
	conn := connWith([]*vizierpb.ExecuteScriptResponse{
		meta(httpID, "http", vizierpb.Column{Name: "n", Type: vizierpb.Int64}),
		dataBatch(httpID, false, 2, vizierpb.TypedColumn{Int64Data: []int64{7, 8}}),
		dataBatch(httpID, true, 0),
	})

	script := conn.CreateScript("noop")
	it, err := script.Results("http")
	require.NoError(t, err)

	var got []int64
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		v, _ := row.Get("n")
		got = append(got, v.(int64))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{7, 8}, got)
}
