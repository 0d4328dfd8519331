package apppassword

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Password is a stored app password. The plaintext is never kept.
type Password struct {
	Key         string    `json:"key"`
	Description string    `json:"description"`
	Hash        string    `json:"hash"`
	Count       int       `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessMeta describes the request an app password was used from.
type AccessMeta struct {
	IP        string
	UserAgent string
	Method    string // e.g. "login", "xmlrpc", "rest"
}

// AccessEntry is one row of the access log.
type AccessEntry struct {
	UserID    uuid.UUID `json:"user_id"`
	Key       string    `json:"key"`
	Time      time.Time `json:"time"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Method    string    `json:"method"`
}

// Created is returned once by Create. Plaintext cannot be retrieved later.
type Created struct {
	Key       string
	Plaintext string
}

// Store persists app passwords per user.
// Insert must fail with ErrKeyTaken, atomically, when the key already exists for the user.
type Store interface {
	List(ctx context.Context, userID uuid.UUID) ([]Password, error)
	Insert(ctx context.Context, userID uuid.UUID, p Password) error
	IncrementCount(ctx context.Context, userID uuid.UUID, key string) (int, error)
	Delete(ctx context.Context, userID uuid.UUID, key string) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}

// AccessLog is a bounded per-user log. Append evicts the oldest entries so at
// most limit remain. Entries returns newest first.
type AccessLog interface {
	Append(ctx context.Context, entry AccessEntry, limit int) error
	Entries(ctx context.Context, userID uuid.UUID) ([]AccessEntry, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}
