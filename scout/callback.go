// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scout

import "fmt"

// UserEvent identifies a detected pattern or an intermediate analysis
// step that callbacks can subscribe to. The values travel in active
// messages and must be the same on every rank.
type UserEvent uint32

const (
	RMAWaitForProgress UserEvent = 117
	LockContention     UserEvent = 188
	WFPSync            UserEvent = 197
)

func (u UserEvent) String() string {
	switch u {
	case RMAWaitForProgress:
		return "RMAWaitForProgress"
	case LockContention:
		return "LockContention"
	case WFPSync:
		return "WFPSync"
	}
	return fmt.Sprintf("UserEvent(%d)", uint32(u))
}

// CbData accompanies a notification.
type CbData struct {
	Idle       float64 // waiting time attributed to the event
	SyncRank   int     // global rank of the peer of a synchronization point
	CommID     uint32
	CallpathID uint32
}

// Callback handles a notification for event e.
type Callback func(u UserEvent, e Event, data CbData)

// Callbacks dispatches notifications to the callbacks registered for a
// user event, in registration order.
type Callbacks struct {
	m map[UserEvent][]Callback
}

// Register adds fn for user event u.
func (c *Callbacks) Register(u UserEvent, fn Callback) {
	if c.m == nil {
		c.m = make(map[UserEvent][]Callback)
	}
	c.m[u] = append(c.m[u], fn)
}

// Notify calls the callbacks of u.
func (c *Callbacks) Notify(u UserEvent, e Event, data CbData) {
	for _, fn := range c.m[u] {
		fn(u, e, data)
	}
}
