package sessionstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/elnurm/ip2data/internal/domain/conductor"
)

// ValkeyStore persists sessions in a Valkey-compatible database. The
// key TTL is the session lifetime: once it lapses the chat endpoint
// reports not-found and the client restarts transparently.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "conductor"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// Save implements conductor.SessionStore.
func (s *ValkeyStore) Save(ctx context.Context, session conductor.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(session.ID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

// Get implements conductor.SessionStore.
func (s *ValkeyStore) Get(ctx context.Context, id string) (conductor.Session, bool, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build())
	payload, err := result.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return conductor.Session{}, false, nil
		}
		return conductor.Session{}, false, err
	}
	var session conductor.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return conductor.Session{}, false, err
	}
	return session, true, nil
}

// Delete implements conductor.SessionStore.
func (s *ValkeyStore) Delete(ctx context.Context, id string) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(id)).Build()).Error()
}

func (s *ValkeyStore) key(id string) string {
	return s.prefix + ":session:" + id
}

var _ conductor.SessionStore = (*ValkeyStore)(nil)
