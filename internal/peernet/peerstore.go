package peernet

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// PeerStore tracks the chain-network (LND) pubkeys a remote node has
// advertised for each currency it trades. It is purely in-memory: nothing
// here is persisted across restarts, so a restart forgets every peer's
// advertised keys along with every in-flight deal.
type PeerStore struct {
	mu   sync.RWMutex
	keys map[peer.ID]map[string]string
}

// NewPeerStore creates an empty peer store.
func NewPeerStore() *PeerStore {
	return &PeerStore{keys: make(map[peer.ID]map[string]string)}
}

// SetLNDPubKey records the chain pubkey a peer advertises for currency.
func (s *PeerStore) SetLNDPubKey(id peer.ID, currency, pubkey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.keys[id]
	if !ok {
		m = make(map[string]string)
		s.keys[id] = m
	}
	m[currency] = pubkey
}

// LNDPubKey returns the chain pubkey a peer has advertised for currency.
func (s *PeerStore) LNDPubKey(id peer.ID, currency string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.keys[id]
	if !ok {
		return "", false
	}
	key, ok := m[currency]
	return key, ok
}

// Forget drops all advertised keys for a peer, e.g. on disconnect.
func (s *PeerStore) Forget(id peer.ID) {
	s.mu.Lock()
	delete(s.keys, id)
	s.mu.Unlock()
}
