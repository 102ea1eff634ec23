// internal/models/farm.go
package models

import (
	"strings"
	"sync"
)

// Mod is a player's declared Freeze modification level. It weights how the
// roster is distributed when teams are split.
type Mod string

const (
	ModNone Mod = ""
	ModM2   Mod = "M2"
	ModM3   Mod = "M3"
)

// Player is a roster entry. ID is empty for manually-added entries that could
// not be resolved to a real account; Name is the dedup key in that case.
type Player struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Mod  Mod    `json:"mod,omitempty"`
}

// Linked reports whether the player maps to a real platform account.
func (p Player) Linked() bool { return p.ID != "" }

// Farm is one active session. It lives in the Store from Create until End;
// there is no persistence, a restart drops every farm.
type Farm struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	MaxPlayers int    `json:"maxPlayers"`
	Duration   int    `json:"duration"` // minutes, display only
	HostID     string `json:"hostId"`

	Players   []Player `json:"players"`
	Finalized bool     `json:"finalized"`

	// Platform references. The core never dereferences these, they are
	// handed back to the collaborator for role grants and re-renders.
	GuildID          string `json:"guildId"`
	RoleID           string `json:"roleId"`
	PrivateChannelID string `json:"privateChannelId"`
	ChannelID        string `json:"channelId"` // channel holding the session message
	MessageID        string `json:"messageId"` // set after the first publish

	// Mu serializes every mutation of this farm. Controller operations hold
	// it across the full check+mutate sequence so two near-simultaneous
	// joins cannot both pass the capacity check.
	Mu sync.Mutex `json:"-"`
}

// FarmSnapshot is an immutable copy of a farm's visible state, taken under
// the farm lock and safe to hand to the collaborator after unlock.
type FarmSnapshot struct {
	ID         string
	Title      string
	MaxPlayers int
	Duration   int
	HostID     string
	Players    []Player
	Finalized  bool

	GuildID          string
	RoleID           string
	PrivateChannelID string
	ChannelID        string
	MessageID        string
}

// SnapshotUnsafe copies the farm state. Assumes the farm lock is held.
func (f *Farm) SnapshotUnsafe() FarmSnapshot {
	players := make([]Player, len(f.Players))
	copy(players, f.Players)
	return FarmSnapshot{
		ID:               f.ID,
		Title:            f.Title,
		MaxPlayers:       f.MaxPlayers,
		Duration:         f.Duration,
		HostID:           f.HostID,
		Players:          players,
		Finalized:        f.Finalized,
		GuildID:          f.GuildID,
		RoleID:           f.RoleID,
		PrivateChannelID: f.PrivateChannelID,
		ChannelID:        f.ChannelID,
		MessageID:        f.MessageID,
	}
}

// PlayerByIDUnsafe finds a roster entry by platform user id. Assumes the farm
// lock is held.
func (f *Farm) PlayerByIDUnsafe(userID string) (int, bool) {
	if userID == "" {
		return -1, false
	}
	for i, p := range f.Players {
		if p.ID == userID {
			return i, true
		}
	}
	return -1, false
}

// PlayerByKeyUnsafe finds a roster entry by platform user id or by
// case-insensitive name. Assumes the farm lock is held.
func (f *Farm) PlayerByKeyUnsafe(key string) (int, bool) {
	if i, ok := f.PlayerByIDUnsafe(key); ok {
		return i, true
	}
	for i, p := range f.Players {
		if strings.EqualFold(p.Name, key) {
			return i, true
		}
	}
	return -1, false
}

// HasNameUnsafe reports whether any roster entry carries the given name,
// compared case-insensitively. Assumes the farm lock is held.
func (f *Farm) HasNameUnsafe(name string) bool {
	for _, p := range f.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// FullUnsafe reports whether the roster has reached capacity. Assumes the
// farm lock is held.
func (f *Farm) FullUnsafe() bool {
	return len(f.Players) >= f.MaxPlayers
}
