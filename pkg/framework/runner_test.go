package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitCanceled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner().Go(RunFunc(waitCanceled), NamedRun("b", RunFunc(waitCanceled)))
	require.Len(t, r.Runners, 2)
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunnerFailureCancelsOthers(t *testing.T) {
	errFail := errors.New("fail")
	r := NewRunner().Go(
		NamedRun("wait", RunFunc(waitCanceled)),
		NamedRun("fail", RunFunc(func(context.Context) error { return errFail })),
	)
	doneCh := make(chan error, 1)
	go func() { doneCh <- r.Wait() }()
	select {
	case err := <-doneCh:
		require.Error(t, err)
		require.Equal(t, "fail: fail", err.Error())
		agg, ok := err.(*AggregatedError)
		require.True(t, ok)
		require.Len(t, agg.Errors, 1)
	case <-time.After(time.Second):
		t.Fatal("runner not stopped")
	}
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Aggregate())
	errs.Add(nil, errors.New("a"), nil, errors.New("b"))
	require.Len(t, errs.Errors, 2)
	require.Equal(t, "multiple errors:\n  a\n  b", errs.Aggregate().Error())
}
