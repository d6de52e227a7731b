package coordinator

import (
	"math/rand"
	"sync"

	"github.com/technomythic/hitster/internal/protocol"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// Store is the in-memory room repository keyed by join code. Rooms vanish
// with the process; there is no persistence.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// Create allocates a fresh room with a unique code, the creator as host and
// self-removal wired for when the room empties.
func (s *Store) Create(creator *Player, settings protocol.Settings) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.generateCodeLocked()
	room := NewRoom(code, creator, settings)
	room.OnEmpty = s.Delete
	s.rooms[code] = room
	return room
}

// Get looks up a room by code.
func (s *Store) Get(code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Delete removes a room. Safe to call for codes already gone.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *Store) generateCodeLocked() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}
