// Package redisstore holds short-lived upload state in Redis.
package redisstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/codesage-ai/interview-server/internal/domain"
)

const resumeKeyPrefix = "resume:"

// ResumeStore keeps extracted resume text between the upload request and
// the websocket session that claims it. Entries expire on their own; an
// unclaimed resume needs no cleanup pass.
type ResumeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *ResumeStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ResumeStore{client: client, ttl: ttl}
}

// Put stores resume text under a fresh id and returns the id.
func (s *ResumeStore) Put(ctx domain.Context, text string) (string, error) {
	id := uuid.New().String()
	if err := s.client.Set(ctx, resumeKeyPrefix+id, text, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("op=resume.put: %w", err)
	}
	return id, nil
}

// Get returns the stored text. Expired or unknown ids map to ErrNotFound.
func (s *ResumeStore) Get(ctx domain.Context, id string) (string, error) {
	text, err := s.client.Get(ctx, resumeKeyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("op=resume.get id=%s: %w", id, domain.ErrNotFound)
		}
		return "", fmt.Errorf("op=resume.get: %w", err)
	}
	return text, nil
}
