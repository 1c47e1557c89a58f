/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package broker

import (
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"
)

// cleanupNode is one entry of the accumulated-sum list. remaining holds
// the delta to the previous node's deadline, so only the head is ever
// decremented; ids with equal deadlines share a node.
type cleanupNode struct {
	ids       []string
	remaining int
	next      *cleanupNode
}

// Cleaner schedules resource teardown after each submission's grace
// period. The tick goroutine runs only while entries exist; Insert
// revives it on demand.
type Cleaner struct {
	mu       sync.Mutex
	head     *cleanupNode
	interval time.Duration
	teardown func(appId string)
	active   atomic.Bool
}

// NewCleaner builds a cleaner firing teardown for each expired id.
func NewCleaner(interval time.Duration, teardown func(appId string)) *Cleaner {
	return &Cleaner{interval: interval, teardown: teardown}
}

// Insert schedules appId for teardown after lifetime seconds. A
// non-positive lifetime fires immediately.
func (c *Cleaner) Insert(appId string, lifetime int) {
	if lifetime <= 0 {
		klog.Infof("lifetime for %s already spent, reclaiming now", appId)
		c.teardown(appId)
		return
	}
	c.mu.Lock()
	c.insertLocked(appId, lifetime)
	c.mu.Unlock()

	if c.active.CompareAndSwap(false, true) {
		go c.run()
	}
}

func (c *Cleaner) insertLocked(appId string, lifetime int) {
	n := &cleanupNode{ids: []string{appId}, remaining: lifetime}
	if c.head == nil {
		c.head = n
		return
	}
	if c.head.remaining > n.remaining {
		// new earliest deadline: the old head keeps its absolute
		// deadline by shedding the new delta
		c.head.remaining -= n.remaining
		n.next = c.head
		c.head = n
		return
	}
	cur := c.head
	for {
		n.remaining -= cur.remaining
		if n.remaining == 0 {
			cur.ids = append(cur.ids, appId)
			return
		}
		if cur.next == nil {
			cur.next = n
			return
		}
		if cur.next.remaining > n.remaining {
			cur.next.remaining -= n.remaining
			n.next = cur.next
			cur.next = n
			return
		}
		cur = cur.next
	}
}

// tick advances the schedule by one interval and returns the ids whose
// deadline passed. The second result reports whether the list drained.
func (c *Cleaner) tick() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.head == nil {
		return nil, true
	}
	c.head.remaining--
	if c.head.remaining > 0 {
		return nil, false
	}
	expired := c.head.ids
	c.head = c.head.next
	return expired, c.head == nil
}

func (c *Cleaner) run() {
	for {
		time.Sleep(c.interval)
		expired, drained := c.tick()
		for _, appId := range expired {
			klog.Infof("lifetime of %s expired, reclaiming resources", appId)
			c.teardown(appId)
		}
		if drained {
			c.mu.Lock()
			// stop only if no insert raced the drain check
			if c.head == nil {
				c.active.Store(false)
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}

// deadlines returns each pending entry as (ids, absolute seconds from
// now). Test helper.
func (c *Cleaner) deadlines() [][2]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result [][2]interface{}
	total := 0
	for cur := c.head; cur != nil; cur = cur.next {
		total += cur.remaining
		ids := append([]string(nil), cur.ids...)
		result = append(result, [2]interface{}{ids, total})
	}
	return result
}
