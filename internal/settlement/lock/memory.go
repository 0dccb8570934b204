// Package lock implementa o marcador "resolução em andamento" por partida.
package lock

import (
	"context"
	"sync"
)

// Memory é o lock em processo (map + mutex), suficiente para uma única instância
type Memory struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{inFlight: make(map[string]struct{})}
}

// Acquire marca a partida como em resolução; false se já estava marcada
func (m *Memory) Acquire(_ context.Context, matchID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inFlight[matchID]; ok {
		return false, nil
	}
	m.inFlight[matchID] = struct{}{}
	return true, nil
}

func (m *Memory) Release(_ context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, matchID)
	return nil
}

func (m *Memory) InFlight(_ context.Context, matchID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[matchID]
	return ok, nil
}
