package services

import (
	"log"
	"sync"

	"habit-quest-system/models"
)

// StatsNotifier is the narrow contract the combat engine needs: push
// an updated (gold, level) pair at a live client channel, best effort,
// no acknowledgment.
type StatsNotifier interface {
	PushStatsUpdate(username string, gold, level int)
}

// StatsHub fans user stat updates out to live SSE subscribers. Sends
// never block: a subscriber that can't keep up loses updates rather
// than stalling combat.
type StatsHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan models.UserStatsUpdate]struct{}
}

func NewStatsHub() *StatsHub {
	return &StatsHub{
		subs: make(map[string]map[chan models.UserStatsUpdate]struct{}),
	}
}

// Subscribe registers a live channel for username. The returned cancel
// func must be called when the client disconnects.
func (h *StatsHub) Subscribe(username string) (<-chan models.UserStatsUpdate, func()) {
	ch := make(chan models.UserStatsUpdate, 8)

	h.mu.Lock()
	if h.subs[username] == nil {
		h.subs[username] = make(map[chan models.UserStatsUpdate]struct{})
	}
	h.subs[username][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[username]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, username)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// PushStatsUpdate delivers to every live subscriber of username.
// Fire-and-forget: full buffers drop the update.
func (h *StatsHub) PushStatsUpdate(username string, gold, level int) {
	update := models.UserStatsUpdate{Username: username, Gold: gold, Level: level}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[username] {
		select {
		case ch <- update:
		default:
			log.Printf("[StatsHub] dropping stats update for %s (slow subscriber)", username)
		}
	}
}
