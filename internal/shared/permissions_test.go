package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogPermissionsUnique(t *testing.T) {
	seen := make(map[string]string)
	for category, perms := range CatalogPermissions() {
		assert.NotEmpty(t, perms, category)
		for _, perm := range perms {
			prev, dup := seen[perm]
			assert.False(t, dup, "%s appears in both %s and %s", perm, prev, category)
			seen[perm] = category
		}
	}
	assert.Len(t, seen, 21)
}
