// Package demux implements the stream demultiplexer: it consumes one
// ordered server response stream and routes each envelope to the
// correct per-table buffer, enforcing the protocol invariants and
// translating terminal status into the typed error taxonomy.
package demux

import (
	"io"

	"github.com/google/uuid"

	"github.com/FlorentATo/pixie/internal/tablebuffer"
	"github.com/FlorentATo/pixie/internal/vizierpb"
	"github.com/FlorentATo/pixie/pxerror"
	"github.com/FlorentATo/pixie/schema"
)

// Registrar is supplied by the execution session. Given a newly
// announced table, it returns either a buffer to deliver rows into or
// nil to indicate no one subscribed to this table.
type Registrar func(name string, id uuid.UUID, s *schema.Schema) *tablebuffer.Buffer

// tableState tracks what the demultiplexer knows about one table id
// across the life of the stream.
type tableState struct {
	name   string
	schema *schema.Schema
	buf    *tablebuffer.Buffer // nil means the table was dropped
	open   bool                // metadata seen, no end-of-stream/close yet
}

// Run drains recv until the stream ends, an error status arrives, or
// the transport itself fails. subscribedBuffers holds one entry per
// table name the session subscribed to (by callback or pull iterator),
// pre-created before the run starts; any entry whose table never
// receives metadata is closed with a TableNotReceived error on stream
// completion. register is invoked exactly once per distinct table id,
// in the order its metadata first appears on the stream.
//
// Run returns the terminal error, or nil on clean completion.
func Run(recv vizierpb.ResponseReceiver, subscribedBuffers map[string]*tablebuffer.Buffer, register Registrar) error {
	tables := make(map[uuid.UUID]*tableState)

	// closeAll closes every buffer the session is waiting on: both tables
	// whose metadata has already arrived and tables that were subscribed
	// but never seen at all. Without the latter, a subscribed table whose
	// metadata never arrives before a terminal error leaves its consumer
	// blocked in Pull forever.
	closeAll := func(err error) {
		seen := make(map[string]bool, len(tables))
		for _, ts := range tables {
			seen[ts.name] = true
			if ts.buf != nil && ts.open {
				ts.buf.CloseErr(err)
				ts.open = false
			}
		}
		for name, buf := range subscribedBuffers {
			if !seen[name] {
				buf.CloseErr(err)
			}
		}
	}

	for {
		resp, err := recv.Recv()
		if err == io.EOF {
			return finish(tables, subscribedBuffers)
		}
		if err != nil {
			terr := pxerror.Transport(err)
			closeAll(terr)
			return terr
		}

		switch {
		case resp.Status != nil:
			if resp.Status.Code == vizierpb.CodeOK {
				continue
			}
			serr := statusError(resp.Status)
			closeAll(serr)
			return serr

		case resp.MetaData != nil:
			id := resp.MetaData.TableID
			if _, exists := tables[id]; exists {
				perr := pxerror.Protocolf("duplicate table id %s", id)
				closeAll(perr)
				return perr
			}
			sch, err := schema.New(resp.MetaData.Relation)
			if err != nil {
				closeAll(err)
				return err
			}
			buf := register(resp.MetaData.Name, id, sch)
			tables[id] = &tableState{name: resp.MetaData.Name, schema: sch, buf: buf, open: true}

		case resp.Data != nil && resp.Data.Batch != nil:
			batch := resp.Data.Batch
			ts, exists := tables[batch.TableID]
			if !exists {
				perr := pxerror.Protocolf("row-batch for unknown table id %s", batch.TableID)
				closeAll(perr)
				return perr
			}
			rows, err := ts.schema.DecodeBatch(batch)
			if err != nil {
				closeAll(err)
				return err
			}
			if batch.Eos {
				if ts.buf != nil {
					ts.buf.PushRows(rows)
					ts.buf.CloseOK()
				}
				ts.open = false
				continue
			}
			if ts.buf != nil {
				ts.buf.PushRows(rows)
			}
			// dropped tables still decode (to keep ordering/validity
			// checks live) but discard the result.
		}
	}
}

func statusError(s *vizierpb.Status) error {
	if len(s.CompilerErrors) > 0 {
		ce := s.CompilerErrors[0]
		return pxerror.ScriptCompileError(int(ce.Line), int(ce.Column), ce.Message)
	}
	return pxerror.ScriptValueError(s.Message)
}

// finish applies the terminal check for a cleanly ended stream:
// subscribed-but-never-seen tables become TableNotReceived, and tables
// whose metadata arrived but never closed become UnexpectedEndOfStream.
// The first such error found becomes the session's terminal outcome. A
// transport error always outranks both, since Run short-circuits on one
// before ever reaching this function.
func finish(tables map[uuid.UUID]*tableState, subscribedBuffers map[string]*tablebuffer.Buffer) error {
	seen := make(map[string]bool, len(tables))
	for _, ts := range tables {
		seen[ts.name] = true
	}

	var first error
	for name, buf := range subscribedBuffers {
		if seen[name] {
			continue
		}
		err := pxerror.TableNotReceived(name)
		buf.CloseErr(err)
		if first == nil {
			first = err
		}
	}

	for _, ts := range tables {
		if ts.open {
			err := pxerror.UnexpectedEndOfStream()
			if ts.buf != nil {
				ts.buf.CloseErr(err)
			}
			ts.open = false
			if first == nil {
				first = err
			}
		}
	}

	return first
}
