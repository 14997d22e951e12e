package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/forecast-crud/internal/crud"
)

type countingRefresher struct {
	calls atomic.Int32
	msgs  []crud.Message
}

func (r *countingRefresher) Refresh(context.Context) []crud.Message {
	r.calls.Add(1)
	return r.msgs
}

func TestScheduler_RunsImmediatelyAndReports(t *testing.T) {
	target := &countingRefresher{msgs: []crud.Message{{Severity: crud.SeverityInfo, Text: "Successfully fetched 0 forecasts"}}}
	s := New(target, time.Hour, zaptest.NewLogger(t).Sugar())

	var seen atomic.Int32
	s.OnRefresh = func(msgs []crud.Message) {
		if len(msgs) == 1 {
			seen.Add(1)
		}
	}

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return target.calls.Load() == 1 && seen.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_NoTarget(t *testing.T) {
	s := New(nil, time.Second, nil)
	assert.Error(t, s.Start())
}
