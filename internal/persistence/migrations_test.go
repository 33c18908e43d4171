package persistence

import (
	"strings"
	"testing"
)

func TestMigrationNamesAreOrderedAndEmbedded(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("names = %v, want at least two migrations", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("migrations out of order: %s before %s", names[i-1], names[i])
		}
	}
	for _, name := range names {
		if !strings.HasSuffix(name, ".sql") {
			t.Errorf("unexpected migration file %s", name)
		}
	}
}
