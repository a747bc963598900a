package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"go-guest-registry/wizard"
)

type InMemorySessionStorage struct {
	SessionMap map[string][]byte
	mutex      sync.Mutex
}

func NewInMemorySessionStorage() *InMemorySessionStorage {
	return &InMemorySessionStorage{
		SessionMap: make(map[string][]byte),
	}
}

type RedisSessionStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisSessionStorage(client *redis.Client, namespace string) *RedisSessionStorage {
	return &RedisSessionStorage{client: client, namespace: namespace}
}

// Should be safe to use in concurrency
type SessionStorage interface {
	// Store the session snapshot under its ID.
	// Should not return an error when the value already exists,
	// it should just update in that case.
	SaveSession(session *wizard.Session) error

	// Should retrieve the session for the given ID
	// and return an error in any case where it fails to do so.
	LoadSession(sessionId string) (*wizard.Session, error)

	// Should remove the session and return an error if it fails to do so.
	// The value not being there should also be considered an error.
	RemoveSession(sessionId string) error
}

// ------------------------------------------------------------------------------

func createKey(namespace, sessionId string) string {
	return fmt.Sprintf("%s:session:%s", namespace, sessionId)
}

const SessionTTL time.Duration = 24 * time.Hour

func (s *RedisSessionStorage) SaveSession(session *wizard.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, session.ID), b, SessionTTL).Err()
}

func (s *RedisSessionStorage) LoadSession(sessionId string) (*wizard.Session, error) {
	ctx := context.Background()
	b, err := s.client.Get(ctx, createKey(s.namespace, sessionId)).Bytes()
	if err != nil {
		return nil, err
	}
	var session wizard.Session
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionId, err)
	}
	return &session, nil
}

func (s *RedisSessionStorage) RemoveSession(sessionId string) error {
	ctx := context.Background()
	return s.client.Del(ctx, createKey(s.namespace, sessionId)).Err()
}

// ------------------------------------------------------------------------------

func (s *InMemorySessionStorage) SaveSession(session *wizard.Session) error {
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.SessionMap[session.ID] = b
	return nil
}

func (s *InMemorySessionStorage) LoadSession(sessionId string) (*wizard.Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	b, ok := s.SessionMap[sessionId]
	if !ok {
		return nil, fmt.Errorf("failed to find session for %s", sessionId)
	}
	var session wizard.Session
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionId, err)
	}
	return &session, nil
}

func (s *InMemorySessionStorage) RemoveSession(sessionId string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.SessionMap[sessionId]; ok {
		delete(s.SessionMap, sessionId)
		return nil
	} else {
		return fmt.Errorf("failed to remove session for %s, because it wasn't there", sessionId)
	}
}
