package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrSystemRole occurs when a mutation targets a seeded system role.
	ErrSystemRole = errors.New("system role cannot be modified")
	// ErrDuplicateRole occurs when a role name collides with an existing one.
	ErrDuplicateRole = errors.New("role name already exists")
)
