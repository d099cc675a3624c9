package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
)

type stubSource struct {
	mu       sync.Mutex
	revision string
	orders   []model.Order
	err      error
	seen     []string
}

func (s *stubSource) Poll(ctx context.Context, revision string) ([]model.Order, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, revision)
	if s.err != nil {
		return nil, revision, false, s.err
	}
	if revision == s.revision {
		return nil, s.revision, false, nil
	}
	return s.orders, s.revision, true, nil
}

func (s *stubSource) set(rev string, orders []model.Order) {
	s.mu.Lock()
	s.revision = rev
	s.orders = orders
	s.mu.Unlock()
}

func TestWatcherPollCarriesRevision(t *testing.T) {
	src := &stubSource{}
	src.set("r1", []model.Order{{ID: 1}})

	var got [][]model.Order
	w := NewWatcher(src, time.Second, nil, func(o []model.Order) { got = append(got, o) })

	changed, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "r1", w.Revision())

	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	src.set("r2", []model.Order{{ID: 1}, {ID: 2}})
	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []string{"", "r1", "r1"}, src.seen)
	require.Len(t, got, 2)
	assert.Len(t, got[1], 2)
}

func TestWatcherPollErrorKeepsRevision(t *testing.T) {
	src := &stubSource{}
	src.set("r1", nil)
	w := NewWatcher(src, time.Second, nil, nil)

	_, err := w.Poll(context.Background())
	require.NoError(t, err)

	src.err = apperr.New(apperr.KindTransport, "down")
	_, err = w.Poll(context.Background())
	require.ErrorIs(t, err, apperr.ErrTransport)
	assert.Equal(t, "r1", w.Revision())
}

func TestWatcherRunStopsOnAuthError(t *testing.T) {
	src := &stubSource{err: apperr.New(apperr.KindAuth, "token expired")}
	w := NewWatcher(src, time.Millisecond, nil, nil)

	err := w.Run(context.Background())
	require.ErrorIs(t, err, apperr.ErrAuth)
}

func TestWatcherRunLogsAndContinues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	src := &stubSource{err: errors.New("boom")}
	w := NewWatcher(src, time.Millisecond, zap.New(core), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx))
	assert.GreaterOrEqual(t, logs.FilterMessage("orders poll failed").Len(), 2)
}
