package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryNotifyOrderAndUnsubscribe(t *testing.T) {
	var r Registry
	var calls []string

	unsubA := r.Subscribe(func() { calls = append(calls, "a") })
	r.Subscribe(func() { calls = append(calls, "b") })

	r.Notify()
	assert.Equal(t, []string{"a", "b"}, calls)

	unsubA()
	unsubA()
	assert.Equal(t, 1, r.Len())

	calls = nil
	r.Notify()
	assert.Equal(t, []string{"b"}, calls)
}

func TestRegistryPanicDoesNotStopOthers(t *testing.T) {
	var r Registry
	called := false
	r.Subscribe(func() { panic("boom") })
	r.Subscribe(func() { called = true })

	assert.NotPanics(t, r.Notify)
	assert.True(t, called)
}

func TestRegistryNilCallback(t *testing.T) {
	var r Registry
	unsub := r.Subscribe(nil)
	unsub()
	assert.Equal(t, 0, r.Len())
}

func TestTopicPublishesValueInOrder(t *testing.T) {
	var topic Topic[bool]
	var got []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		topic.Subscribe(func(v bool) {
			if v {
				got = append(got, name)
			}
		})
	}
	unsub := topic.Subscribe(func(bool) { got = append(got, "gone") })
	unsub()

	topic.Publish(true)
	assert.Equal(t, []string{"first", "second", "third"}, got)
	assert.Equal(t, 3, topic.Len())
}
