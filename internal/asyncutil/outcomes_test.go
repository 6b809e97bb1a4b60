package asyncutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutcomesSetAndGet(t *testing.T) {
	o := NewOutcomes()
	o.Set("a.txt", nil)
	o.Set("b.txt", errors.New("boom"))

	err, ok := o.Get("a.txt")
	require.True(t, ok)
	require.NoError(t, err)

	err, ok = o.Get("b.txt")
	require.True(t, ok)
	require.EqualError(t, err, "boom")

	_, ok = o.Get("missing")
	require.False(t, ok)
}

func TestOutcomesKeysPreserveFirstSeenOrder(t *testing.T) {
	o := NewOutcomes()
	o.Set("z", nil)
	o.Set("a", nil)
	o.Set("z", errors.New("overwritten"))

	require.Equal(t, []string{"z", "a"}, o.Keys())
}

func TestOutcomesFailures(t *testing.T) {
	o := NewOutcomes()
	o.Set("ok", nil)
	o.Set("bad", errors.New("nope"))

	failures := o.Failures()
	require.Len(t, failures, 1)
	require.Contains(t, failures, "bad")
}

func TestErrorReportKeepsFirst(t *testing.T) {
	var e Error
	e.Report(nil)
	e.Report(context.Canceled)
	require.NoError(t, e.Err())

	first := errors.New("first")
	e.Report(first)
	e.Report(errors.New("second"))
	require.Equal(t, first, e.Err())
}
