package outbound

import (
	"container/list"
	"sync"

	"beaconmesh/internal/mesh"
)

const DefaultCacheCapacity = 50

type cacheEntry struct {
	id  string
	msg mesh.Message
}

// Cache maps wire message ids to sent messages in access order: a Get moves
// the entry to the front, so messages that keep being retried stay resident
// while cold ones age out the back. A retry whose id has aged out is
// silently abandoned by the engine; delivery is best-effort.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Put stores or refreshes a message under its wire id, evicting the least
// recently used entry when the cache is full.
func (c *Cache) Put(id string, msg mesh.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		el.Value.(*cacheEntry).msg = msg
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{id: id, msg: msg})
	c.items[id] = el
	for c.order.Len() > c.capacity {
		back := c.order.Back()
		if back == nil {
			break
		}
		old := back.Value.(*cacheEntry)
		delete(c.items, old.id)
		c.order.Remove(back)
	}
}

// Get looks up a message by wire id and marks it recently used.
func (c *Cache) Get(id string) (mesh.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id]
	if !ok {
		return mesh.Message{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).msg, true
}

// Delete removes an entry once the message is confirmed delivered.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id]
	if !ok {
		return
	}
	delete(c.items, id)
	c.order.Remove(el)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
