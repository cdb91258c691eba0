package roles

import "time"

// Role groups permissions under a name. System roles are seeded at install
// time; they cannot be deleted and their name is frozen, though their
// permission set may still be edited.
type Role struct {
	ID           string
	Name         string
	DisplayName  string
	Description  string
	IsSystemRole bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Permission is one catalog entry. The catalog is closed and versioned with
// the schema; Category exists for display grouping only.
type Permission struct {
	ID          string
	Name        string
	Category    string
	Description string
}

// RoleInput carries the writable role fields.
type RoleInput struct {
	Name        string
	DisplayName string
	Description string
}
