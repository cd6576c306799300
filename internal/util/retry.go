package util

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const (
	lockRetries   = 3
	lockBaseDelay = 100 * time.Millisecond
)

// RetryOnLock retries the given function if it fails with a database lock error
func RetryOnLock(operation func() error) error {
	_, err := RetryOnLockWithResult(func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// RetryOnLockWithResult retries the given function if it fails with a database lock error
// and returns the result along with any error
func RetryOnLockWithResult[T any](operation func() (T, error)) (T, error) {
	var result T
	var err error

	for i := 0; i < lockRetries; i++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}
		if !IsLockError(err) {
			return result, err
		}

		// Exponential backoff: 100ms, 200ms, 400ms
		delay := lockBaseDelay * time.Duration(1<<i)
		log.Printf("Database locked, retrying in %v...", delay)
		time.Sleep(delay)
	}

	return result, err
}

// IsLockError reports whether err is SQLite's busy/locked condition.
func IsLockError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}
