package tracker

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesWorking(t *testing.T) {
	r := NewRegistry()
	s := r.Register("id-1", "/home/u/proj", "term-1")

	require.NotNil(t, s)
	assert.Equal(t, StateWorking, s.State)
	assert.NotEmpty(t, s.FriendlyName)
	assert.Equal(t, 1, r.Len())
}

func TestRegister_Idempotent(t *testing.T) {
	r := NewRegistry()
	first := r.Register("id-1", "/home/u/proj", "")
	first.TransitionTo(StateNeedsAttention)
	first.UpdateActivity("waiting")

	second := r.Register("id-1", "/elsewhere", "term-2")
	assert.Same(t, first, second, "re-register must return the existing record")
	assert.Equal(t, StateNeedsAttention, second.State, "re-register must not reset state")
	assert.Equal(t, "waiting", second.Activity)
	assert.Equal(t, 1, r.Len())
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("id-1", "/tmp", "")

	removed := r.Unregister("id-1")
	require.NotNil(t, removed)
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Get("id-1"))

	assert.Nil(t, r.Unregister("id-1"), "unregistering unknown id is a no-op")
}

func TestAll_InsertionOrder(t *testing.T) {
	r := NewRegistry()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		r.Register(id, "/tmp", "")
	}

	all := r.All()
	require.Len(t, all, 3)
	for i, id := range ids {
		assert.Equal(t, id, all[i].SessionID)
	}
}

func TestByState(t *testing.T) {
	r := NewRegistry()
	r.Register("w1", "/tmp", "")
	attention := r.Register("n1", "/tmp", "")
	attention.TransitionTo(StateNeedsAttention)
	r.Register("w2", "/tmp", "")

	working := r.ByState(StateWorking)
	require.Len(t, working, 2)
	needs := r.ByState(StateNeedsAttention)
	require.Len(t, needs, 1)
	assert.Equal(t, "n1", needs[0].SessionID)
}

func TestListeners(t *testing.T) {
	r := NewRegistry()
	var events []string
	r.AddListener(func(event string, s *SessionState) {
		events = append(events, event+":"+s.SessionID)
	})

	r.Register("id-1", "/tmp", "")
	r.Register("id-1", "/tmp", "") // idempotent, no second event
	r.Unregister("id-1")

	assert.Equal(t, []string{"session_registered:id-1", "session_unregistered:id-1"}, events)
}

func TestRemoveListener(t *testing.T) {
	r := NewRegistry()
	calls := 0
	handle := r.AddListener(func(string, *SessionState) { calls++ })

	r.Register("id-1", "/tmp", "")
	r.RemoveListener(handle)
	r.Register("id-2", "/tmp", "")

	assert.Equal(t, 1, calls)
}

func TestListenerPanicIsolated(t *testing.T) {
	r := NewRegistry()
	var reached bool
	r.AddListener(func(string, *SessionState) { panic("listener bug") })
	r.AddListener(func(string, *SessionState) { reached = true })

	require.NotPanics(t, func() { r.Register("id-1", "/tmp", "") })
	assert.True(t, reached, "panicking listener must not block later listeners")
	assert.Equal(t, 1, r.Len(), "registry mutation must survive listener panic")
}

func TestConcurrentRegister_SingleRecord(t *testing.T) {
	r := NewRegistry()
	id := uuid.NewString()

	var registered int
	var regMu sync.Mutex
	r.AddListener(func(event string, _ *SessionState) {
		if event == EventRegistered {
			regMu.Lock()
			registered++
			regMu.Unlock()
		}
	})

	const n = 32
	var wg sync.WaitGroup
	results := make([]*SessionState, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Register(id, "/tmp", "")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, registered, "exactly one session_registered event")
	for _, res := range results {
		assert.Same(t, results[0], res, "all callers must see the same record")
	}
}
