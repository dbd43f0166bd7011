// Package accountlock serializes mutations of a single ad account.
package accountlock

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Unlock releases a held account lock. It is safe to call more than once.
type Unlock func()

// Locker grants exclusive access to one ad account at a time.
type Locker interface {
	Lock(ctx context.Context, accountID snowflake.ID) (Unlock, error)
}

var ErrInvalidAccount = errors.New("invalid_account")
