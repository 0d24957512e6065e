// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package pubsub

import "sync"

// subscriberBuffer bounds a single subscriber's backlog; a subscriber
// that stops draining its channel misses events rather than blocking
// publishers.
const subscriberBuffer = 64

// Broker fans a stream of Event[T] out to any number of subscribers.
// Zero value is not usable; construct with NewBroker.
type Broker[T any] struct {
	mu          sync.Mutex
	subscribers map[chan Event[T]]struct{}
	closed      bool
}

// NewBroker returns a ready-to-use Broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subscribers: make(map[chan Event[T]]struct{})}
}

// Publish delivers ev to every current subscriber. A subscriber whose
// channel is full drops the event rather than stalling the publisher.
func (b *Broker[T]) Publish(ev Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new listener and returns its event channel
// along with an unsubscribe function. Calling the unsubscribe function
// more than once is a no-op.
func (b *Broker[T]) Subscribe() (<-chan Event[T], func()) {
	ch := make(chan Event[T], subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subscribers[ch]; ok {
				delete(b.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, unsubscribe
}

// Shutdown closes every subscriber channel and rejects further
// publishes. Called once when the owning Store is closed.
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
