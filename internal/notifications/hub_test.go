package notifications

import (
	"sync"
	"testing"
	"time"

	"cliqd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventuallyTimeout = time.Second

func TestHub_RevisionIsMonotonic(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, uint64(0), hub.Revision())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish(Change{Topic: TopicPosts})
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(20), hub.Revision())
	latest, ok := hub.Latest(TopicPosts)
	require.True(t, ok)
	assert.Equal(t, uint64(20), latest.Revision)
}

func TestHub_SubscribeFiltersTopics(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe(TopicUsers)
	hub.Publish(Change{Topic: TopicPosts})
	rev := hub.Publish(Change{Topic: TopicUsers, Users: []models.User{{ID: "u1"}}})

	select {
	case c := <-sub.C():
		assert.Equal(t, TopicUsers, c.Topic)
		assert.Equal(t, rev, c.Revision)
		assert.Equal(t, "u1", c.Users[0].ID)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no change delivered")
	}
}

func TestHub_LaggingSubscriberGetsLatest(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe()
	hub.Publish(Change{Topic: TopicPosts})
	hub.Publish(Change{Topic: TopicPosts})
	last := hub.Publish(Change{Topic: TopicSession, Session: &models.Session{ID: "u1"}})

	c := <-sub.C()
	assert.Equal(t, last, c.Revision)
	assert.Equal(t, "u1", c.Session.ID)

	select {
	case extra := <-sub.C():
		t.Fatalf("unexpected extra change %d", extra.Revision)
	default:
	}
}

func TestHub_PublishDoesNotBlock(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	_ = hub.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(Change{Topic: TopicUsers})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(testEventuallyTimeout):
		t.Fatal("publish blocked on an unread subscriber")
	}
}

func TestHub_CloseAndUnsubscribe(t *testing.T) {
	hub := NewHub()

	a := hub.Subscribe()
	b := hub.Subscribe()
	a.Close()
	a.Close()

	_, open := <-a.C()
	assert.False(t, open)

	hub.Close()
	_, open = <-b.C()
	assert.False(t, open)

	rev := hub.Publish(Change{Topic: TopicPosts})
	assert.Equal(t, uint64(1), rev)

	late := hub.Subscribe()
	_, open = <-late.C()
	assert.False(t, open)
}
