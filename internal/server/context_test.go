package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldersync/foldersync/internal/registry"
)

// countingSession implements session.Session directly and counts deliveries.
type countingSession struct {
	id string

	mu          sync.Mutex
	listChanged int
	sendErr     error
}

func (s *countingSession) ID() string { return s.id }

func (s *countingSession) SendListChanged() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listChanged++
	return s.sendErr
}

func (s *countingSession) SendResourceUpdated(string) error { return nil }

func (s *countingSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listChanged
}

func TestRegistryMutationNotifiesTrackedSessions(t *testing.T) {
	core := NewServerContext(context.Background(), CoreConfig{})
	defer func() { _ = core.Shutdown() }()

	sess := &countingSession{id: "s1"}
	core.Directory().Track(sess)

	core.Registry().Add(registry.Resource{
		URI:      "file:///a.txt",
		Name:     "a.txt",
		MIMEType: "text/plain",
		Provider: func(context.Context) (string, error) { return "", nil },
	})

	require.Eventually(t, func() bool {
		return sess.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDeliveryFailurePrunesSession(t *testing.T) {
	core := NewServerContext(context.Background(), CoreConfig{})
	defer func() { _ = core.Shutdown() }()

	dead := &countingSession{id: "dead", sendErr: errors.New("connection reset")}
	core.Directory().Track(dead)
	core.Subscriptions().Subscribe("file:///a.txt", dead)

	core.Fanout().NotifyListChanged(core.Directory().Enumerate())

	// The failed delivery evicts the session from both indexes.
	require.Eventually(t, func() bool {
		return core.Directory().Len() == 0
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return core.Subscriptions().Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	core := NewServerContext(context.Background(), CoreConfig{})

	require.NoError(t, core.Shutdown())
	require.NoError(t, core.Shutdown())
	assert.True(t, core.IsShutdown())
	assert.Error(t, core.Context().Err())
}
