// Package pxapi is the public surface of the Vizier client: Client and
// VizierConn discover and connect to clusters, and Script runs a PxL
// script against one of them and demultiplexes its result tables.
package pxapi

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FlorentATo/pixie/internal/demux"
	"github.com/FlorentATo/pixie/internal/tablebuffer"
	"github.com/FlorentATo/pixie/pxerror"
	"github.com/FlorentATo/pixie/schema"
)

type scriptState int

const (
	stateConfiguring scriptState = iota
	stateRunning
	stateDone
)

// Script is the execution session handle returned by
// VizierConn.CreateScript. It accumulates subscriptions and callbacks
// while configuring, then runs the script exactly once, moving through
// a configuring -> running -> done state machine.
type Script struct {
	text string
	conn *VizierConn

	mu           sync.Mutex
	state        scriptState
	callbacks    map[string][]RowCallback
	pullSubs     map[string]*tablebuffer.Buffer
	subscribeAll bool
	tableGen     *TableSubGenerator
}

func newScript(conn *VizierConn, text string) *Script {
	return &Script{
		text:      text,
		conn:      conn,
		callbacks: make(map[string][]RowCallback),
		pullSubs:  make(map[string]*tablebuffer.Buffer),
	}
}

func (s *Script) requireConfiguring() error {
	if s.state != stateConfiguring {
		return pxerror.Lifecyclef("script is not in the configuring state")
	}
	return nil
}

// AddCallback registers fn to run once per row of tableName, in
// enqueue order. Multiple callbacks may be registered for the same
// table; all run, in registration order, for every row.
func (s *Script) AddCallback(tableName string, fn RowCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConfiguring(); err != nil {
		return err
	}
	if _, isPull := s.pullSubs[tableName]; isPull {
		return pxerror.Lifecyclef("table '%s' already has a pull subscription", tableName)
	}
	s.callbacks[tableName] = append(s.callbacks[tableName], fn)
	return nil
}

// Subscribe registers exactly one pull iterator for tableName. A
// second call for the same name fails with a LifecycleError.
func (s *Script) Subscribe(tableName string) (*TableSub, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConfiguring(); err != nil {
		return nil, err
	}
	if _, exists := s.pullSubs[tableName]; exists {
		return nil, pxerror.Lifecyclef("Already subscribed to '%s'", tableName)
	}
	if _, hasCB := s.callbacks[tableName]; hasCB {
		return nil, pxerror.Lifecyclef("table '%s' already has a callback registered", tableName)
	}
	buf := tablebuffer.New()
	s.pullSubs[tableName] = buf
	return &TableSub{TableName: tableName, buf: buf}, nil
}

// SubscribeAllTables registers a meta-sink that yields a TableSub for
// every table as its metadata arrives. Per-name Subscribe calls for a
// table still take precedence for that table; SubscribeAllTables skips
// it.
func (s *Script) SubscribeAllTables() (*TableSubGenerator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConfiguring(); err != nil {
		return nil, err
	}
	s.subscribeAll = true
	s.tableGen = newTableSubGenerator()
	return s.tableGen, nil
}

// Results subscribes to tableName, starts the run asynchronously, and
// returns a RowIterator that advances the run and the buffer together.
func (s *Script) Results(tableName string) (*RowIterator, error) {
	sub, err := s.Subscribe(tableName)
	if err != nil {
		return nil, err
	}
	done := s.RunAsync()
	return &RowIterator{sub: sub, done: done}, nil
}

// RunAsync transitions the session to running and drives the stream
// demultiplexer and all registered consumers concurrently, returning
// immediately. The returned channel receives exactly one value (nil on
// success) once the run has fully completed.
func (s *Script) RunAsync() <-chan error {
	outcome := make(chan error, 1)

	s.mu.Lock()
	if err := s.requireConfiguring(); err != nil {
		s.mu.Unlock()
		outcome <- err
		return outcome
	}
	s.state = stateRunning

	subscribedBuffers := make(map[string]*tablebuffer.Buffer, len(s.pullSubs)+len(s.callbacks))
	for name, buf := range s.pullSubs {
		subscribedBuffers[name] = buf
	}
	callbackBufs := make(map[string]*tablebuffer.Buffer, len(s.callbacks))
	for name := range s.callbacks {
		buf := tablebuffer.New()
		callbackBufs[name] = buf
		subscribedBuffers[name] = buf
	}
	subscribeAll := s.subscribeAll
	tableGen := s.tableGen
	callbacks := s.callbacks
	s.mu.Unlock()

	registrar := func(name string, id uuid.UUID, sch *schema.Schema) *tablebuffer.Buffer {
		if buf, ok := subscribedBuffers[name]; ok {
			return buf
		}
		if subscribeAll {
			buf := tablebuffer.New()
			tableGen.push(&TableSub{TableName: name, buf: buf})
			return buf
		}
		return nil
	}

	go func() {
		outcome <- s.drive(subscribedBuffers, callbackBufs, callbacks, subscribeAll, tableGen, registrar)
	}()

	return outcome
}

// drive runs the demultiplexer against the open stream concurrently
// with one consumer goroutine per callback-subscribed table, joins
// them, and finalizes the session state.
func (s *Script) drive(
	subscribedBuffers map[string]*tablebuffer.Buffer,
	callbackBufs map[string]*tablebuffer.Buffer,
	callbacks map[string][]RowCallback,
	subscribeAll bool,
	tableGen *TableSubGenerator,
	registrar demux.Registrar,
) error {
	defer func() {
		s.mu.Lock()
		s.state = stateDone
		s.mu.Unlock()
	}()

	// errgroup.WithContext cancels ctx the moment any goroutine returns a
	// non-nil error; since openStream binds the data-plane stream to
	// ctx, a failing callback aborts the in-flight Recv() and unblocks
	// every other consumer waiting on this run.
	g, ctx := errgroup.WithContext(context.Background())

	recv, err := s.conn.openStream(ctx, s.text)
	if err != nil {
		for _, buf := range subscribedBuffers {
			buf.CloseErr(err)
		}
		if subscribeAll {
			tableGen.closeErr(err)
		}
		return err
	}

	for name, buf := range callbackBufs {
		name, buf := name, buf
		fns := callbacks[name]
		g.Go(func() error {
			return runCallbacks(buf, fns)
		})
	}

	g.Go(func() error {
		return demux.Run(recv, subscribedBuffers, registrar)
	})

	err = g.Wait()

	if subscribeAll {
		if err != nil {
			tableGen.closeErr(err)
		} else {
			tableGen.closeOK()
		}
	}

	return err
}

func runCallbacks(buf *tablebuffer.Buffer, fns []RowCallback) error {
	for {
		res := buf.Pull()
		if res.Err != nil {
			return res.Err
		}
		if res.End {
			return nil
		}
		for _, fn := range fns {
			if err := fn(res.Row); err != nil {
				cerr := pxerror.Callback(err)
				buf.CloseErr(cerr)
				return cerr
			}
		}
	}
}

// Run drives the script to completion synchronously. It is an error to
// call Run when any pull-iterator subscription is outstanding, since a
// synchronous run requires every subscribed table to be consumed by a
// callback; use RunAsync and drive the iterator concurrently instead.
func (s *Script) Run() error {
	s.mu.Lock()
	hasPull := len(s.pullSubs) > 0 || s.subscribeAll
	s.mu.Unlock()
	if hasPull {
		return pxerror.Lifecyclef("Run() requires all subscribed tables to be consumed by callbacks; use RunAsync with a pull subscription outstanding")
	}
	return <-s.RunAsync()
}

// RowIterator is the synchronous iterator Results returns: it advances
// the run and the underlying table buffer together.
type RowIterator struct {
	sub  *TableSub
	done <-chan error
	err  error
}

// Next blocks for the next row. ok is false once the table ends or the
// run fails; check Err afterward.
func (it *RowIterator) Next() (Row, bool) {
	row, ok := it.sub.Next()
	if ok {
		return row, true
	}
	if subErr := it.sub.Err(); subErr != nil {
		it.err = subErr
	} else if runErr := <-it.done; runErr != nil {
		it.err = runErr
	}
	return Row{}, false
}

// Err returns the error that ended iteration, if any.
func (it *RowIterator) Err() error {
	return it.err
}
