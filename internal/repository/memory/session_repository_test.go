package memory

import (
	"sync"
	"testing"
	"time"

	"support-chat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestSessionLifecycle(t *testing.T) {
	repo := NewSessionRepository(0)

	session := repo.Create("ws-1")
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "ws-1", session.WorkspaceID)

	got, found := repo.Get(session.ID, "ws-1")
	assert.True(t, found)
	assert.Equal(t, session.ID, got.ID)

	repo.End(session.ID)
	_, found = repo.Get(session.ID, "ws-1")
	assert.False(t, found)
}

func TestSessionWorkspaceIsolation(t *testing.T) {
	repo := NewSessionRepository(0)
	session := repo.Create("ws-1")

	_, found := repo.Get(session.ID, "ws-2")
	assert.False(t, found, "foreign workspace must not see the session")
}

func TestSessionExpiry(t *testing.T) {
	repo := NewSessionRepository(20 * time.Millisecond)
	session := repo.Create("ws-1")

	time.Sleep(40 * time.Millisecond)

	_, found := repo.Get(session.ID, "ws-1")
	assert.False(t, found)
}

func TestTouchSlidesExpiryAndRecordsActivity(t *testing.T) {
	repo := NewSessionRepository(60 * time.Millisecond)
	session := repo.Create("ws-1")

	before := session.LastActivity
	time.Sleep(40 * time.Millisecond)
	repo.Touch(session, store.ActivityQuery)

	time.Sleep(40 * time.Millisecond)
	got, found := repo.Get(session.ID, "ws-1")
	assert.True(t, found, "touch must reset the TTL")
	assert.True(t, got.LastActivity.After(before))
	assert.Equal(t, store.ActivityQuery, got.State["last_activity_type"])
}

func TestConcurrentTouchOnSameSession(t *testing.T) {
	repo := NewSessionRepository(0)
	session := repo.Create("ws-1")

	// Unserialized callers sharing one session id must not race on the
	// state map (run with -race to enforce).
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, ok := repo.Get(session.ID, "ws-1")
			if !ok {
				return
			}
			repo.Touch(s, store.ActivityStream)
		}()
	}
	close(start)
	wg.Wait()

	got, found := repo.Get(session.ID, "ws-1")
	assert.True(t, found)
	assert.Equal(t, store.ActivityStream, got.State["last_activity_type"])
}

func TestGetReturnsPrivateCopy(t *testing.T) {
	repo := NewSessionRepository(0)
	session := repo.Create("ws-1")

	first, _ := repo.Get(session.ID, "ws-1")
	first.State["scratch"] = true

	second, _ := repo.Get(session.ID, "ws-1")
	_, leaked := second.State["scratch"]
	assert.False(t, leaked, "mutating a returned session must not reach the store")
}

func TestPartialMessages(t *testing.T) {
	repo := NewSessionRepository(0)
	session := repo.Create("ws-1")

	_, found := repo.GetPartial(session.ID)
	assert.False(t, found)

	repo.SavePartial(session.ID, "the refund window is")
	partial, found := repo.GetPartial(session.ID)
	assert.True(t, found)
	assert.Equal(t, "the refund window is", partial.Content)

	repo.ClearPartial(session.ID)
	_, found = repo.GetPartial(session.ID)
	assert.False(t, found)
}
