package instance

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-hass/internal/homeassistant"
	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hass/migrations"
)

// openTestRepo returns a repository over a migrated in-memory database.
func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func websocketInstance(id, name string) Instance {
	return Instance{
		ID:          id,
		Name:        name,
		Kind:        KindWebSocket,
		BaseURL:     "http://" + id + ":8123",
		AccessToken: "token-" + id,
		CacheJSON:   true,
		Enabled:     true,
	}
}

// fakeSource is a DataSource over a plain Store.
type fakeSource struct {
	*homeassistant.Store
}

func newFakeSource(connected bool) *fakeSource {
	s := &fakeSource{Store: homeassistant.NewStore()}
	if connected {
		s.SetConnectionState(homeassistant.StateConnected)
	}
	return s
}

func (*fakeSource) RefreshTags(context.Context) error { return nil }
