package pxapi

import (
	"github.com/FlorentATo/pixie/internal/tablebuffer"
)

// TableSub is a pull-based iterator over one table's rows, returned by
// Script.Subscribe and by each item of a TableSubGenerator.
type TableSub struct {
	TableName string
	buf       *tablebuffer.Buffer
	lastErr   error
}

// Next blocks until a row is available, the table ends, or the run
// fails. ok is false once the table has ended or errored; callers
// should then check Err.
func (t *TableSub) Next() (row Row, ok bool) {
	res := t.buf.Pull()
	if res.Err != nil {
		t.lastErr = res.Err
		return Row{}, false
	}
	if res.End {
		return Row{}, false
	}
	return res.Row, true
}

// Err returns the error that ended the table's stream, if any. Only
// meaningful after Next has returned ok == false.
func (t *TableSub) Err() error {
	return t.lastErr
}
