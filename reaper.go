/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"time"
)

// reapIdle disconnects every session that has sent nothing accepted
// since cutoff, and returns how many it removed.
func (rt *Router) reapIdle(cutoff time.Time) int {
	reaped := 0

	for _, id := range rt.registry.Idle(cutoff) {
		s, ok := rt.session(id)
		if !ok {
			continue
		}

		logf(rt.cfg, "PEERS: Evicting idle connection %s", id)
		rt.Disconnect(s)
		reaped++
	}

	return reaped
}

// reaperLoop periodically evicts sessions idle for longer than timeout,
// until ctx is done.
func (rt *Router) reaperLoop(ctx context.Context, timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rt.reapIdle(now.Add(-timeout))
		}
	}
}
