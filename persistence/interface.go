// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wfunc/trexbooth/credentials"
)

// Opener opens a connection authenticated with cred. The returned *gorm.DB is
// owned by the caller and closed after a single operation.
type Opener func(ctx context.Context, cred credentials.Credential) (*gorm.DB, error)

// ConnectObserver receives the outcome of every connection attempt.
type ConnectObserver interface {
	ObserveConnectAttempt(outcome string)
}

// 连接结果
const (
	OutcomeOK    = "ok"
	OutcomeAuth  = "auth"
	OutcomeError = "error"
)

// 错误定义
var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrInconsistentOutcome = errors.New("human_won does not match scores")
	ErrInvalidScore        = errors.New("score must not be negative")
)

// ConnectError is returned when both connection attempts failed; Err is the
// failure of the attempt made with the refreshed credential.
type ConnectError struct {
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("database connection failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
