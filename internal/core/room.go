package core

import (
	"regexp"
	"sort"
	"strings"
)

// RoomCapacity is the maximum number of members per room.
const RoomCapacity = 10

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// SanitizeRoomCode strips non-alphanumeric characters, uppercases and
// truncates the raw code to six characters.
func SanitizeRoomCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 6 {
			break
		}
	}
	return strings.ToUpper(b.String())
}

// ValidRoomCode reports whether a sanitized code is a well-formed
// six-character room code.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// Room groups clients sharing one broadcast scope. A room exists in
// the registry iff its member set is non-empty.
type Room struct {
	Code    string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(code string) *Room {
	return &Room{
		Code:    code,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports whether the client is a member.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Size returns the current member count.
func (r *Room) Size() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// Members returns member ids in sorted order, skipping except if non-nil.
func (r *Room) Members(except *Client) []string {
	ids := make([]string, 0, len(r.clients))
	for c := range r.clients {
		if c == except {
			continue
		}
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}

// Broadcast sends an event to all clients in the room except the
// excluded one. Slow consumers are dropped, never waited on.
func (r *Room) Broadcast(event *Event, except *Client) {
	for client := range r.clients {
		if client == except {
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}
