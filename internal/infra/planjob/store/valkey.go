package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

// ValkeyStore persists jobs as JSON strings that expire after the configured TTL.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "mealplan:job"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) Save(ctx context.Context, job planjob.Job) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(job.ID)).Value(string(payload))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Get(ctx context.Context, id string) (planjob.Job, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return planjob.Job{}, false, nil
		}
		return planjob.Job{}, false, err
	}
	job, err := decodeJob([]byte(payload))
	if err != nil {
		return planjob.Job{}, false, err
	}
	return job, true, nil
}

// encodeJob writes the job as JSON. The request payload is stored base64 encoded
// so plain text profiles survive alongside JSON ones.
func encodeJob(job planjob.Job) ([]byte, error) {
	out, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return out, nil
}

func decodeJob(raw []byte) (planjob.Job, error) {
	var job planjob.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return planjob.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (s *ValkeyStore) key(id string) string {
	return s.prefix + ":" + id
}

var _ planjob.Store = (*ValkeyStore)(nil)
