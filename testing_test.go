/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	"sync"
)

// Test types
type TestPlayer struct {
	ID      int64
	Name    string
	Matches []int64
}

func (p *TestPlayer) PrimaryKey() int64 { return p.ID }

type TestClub struct {
	ID   int64
	Name string
}

func (c *TestClub) PrimaryKey() int64 { return c.ID }

// recordingObserver keeps every event it receives.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnEvent(_ context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) keys(typ EventType) []int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	var keys []int64
	for _, e := range o.events {
		if e.Type == typ {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
