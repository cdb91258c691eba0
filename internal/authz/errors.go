package authz

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("authz: not found")

// ErrNoSuchRule indicates no isolation rule is registered for a resource type.
var ErrNoSuchRule = errors.New("authz: no isolation rule registered")

// ErrRuleExists indicates an isolation rule name collision on registration.
var ErrRuleExists = errors.New("authz: isolation rule already registered")

// AccessDeniedError is raised only by the Guard middleware form. The plain
// boolean-returning checks never produce it.
type AccessDeniedError struct {
	ResourceType string
	ResourceID   string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("authz: access denied to %s %s", e.ResourceType, e.ResourceID)
}

// StoreError wraps a failure from the backing store. Enforcement paths treat
// it as "no access" (fail closed) but keep the cause distinguishable in logs
// from a legitimately unprivileged user.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("authz: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err originates from the backing store.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
