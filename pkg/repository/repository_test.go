package repository_test

import (
	"fmt"
	"testing"
	"time"
)

// testCollectionPrefix isolates each suite run inside a shared Firestore
// project.
func testCollectionPrefix(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("test%d", time.Now().UnixNano())
}
