package shutdown

import (
	"sync"
	"testing"
	"time"

	"produce-sorter/internal/logger"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu    *sync.Mutex
	order *[]string
	name  string
}

func (r recorder) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.order = append(*r.order, r.name)
}

type stuck struct{ release chan struct{} }

func (s stuck) Shutdown() { <-s.release }

func TestShutdownReverseOrderAndCancel(t *testing.T) {
	var mu sync.Mutex
	var order []string

	m := NewManager(logger.NewNop())
	m.Register(recorder{&mu, &order, "first"})
	m.Register(recorder{&mu, &order, "second"})

	m.Shutdown()

	assert.Equal(t, []string{"second", "first"}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	var order []string

	m := NewManager(logger.NewNop())
	m.Register(recorder{&mu, &order, "only"})

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"only"}, order)
}

func TestShutdownTimesOutStuckComponent(t *testing.T) {
	s := stuck{release: make(chan struct{})}
	defer close(s.release)

	m := NewManager(logger.NewNop())
	m.SetTimeout(20 * time.Millisecond)
	m.Register(s)

	start := time.Now()
	m.Shutdown()
	assert.Less(t, time.Since(start), 2*time.Second)
}
