package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishToSubscribers(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(1)
	_, ch2 := b.Subscribe(1)
	assert.NotEmpty(t, id1)

	b.PublishNew(KindTaskCreated, "t1", "created", map[string]string{"title": "Write docs"})

	for _, ch := range []<-chan *Notification{ch1, ch2} {
		n := <-ch
		require.NotNil(t, n)
		assert.Equal(t, KindTaskCreated, n.Kind)
		assert.Equal(t, "t1", n.ResourceID)
		assert.Equal(t, "Write docs", n.Metadata["title"])
		assert.NotEmpty(t, n.ID)
		assert.False(t, n.CreatedAt.IsZero())
		assert.False(t, n.Failed())
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(1)

	b.PublishNew(KindPersistFailed, "t1", "first", nil)
	b.PublishNew(KindPersistFailed, "t1", "second", nil)

	n := <-ch
	assert.Equal(t, "first", n.Message)
	assert.True(t, n.Failed())
	select {
	case extra := <-ch:
		t.Fatalf("unexpected notification %q", extra.Message)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New()
	id, ch := b.Subscribe(1)
	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)

	// Unsubscribing twice and publishing afterwards are both harmless.
	b.Unsubscribe(id)
	b.PublishNew(KindTaskDeleted, "t1", "deleted", nil)
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.PublishNew(KindTaskUpdated, "t1", "updated", nil) })
}
