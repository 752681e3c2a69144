package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/civicchat/orchestra/pkg/adapters/sqlite"
	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunThreadStoreContract(t, store)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "threads.db") + "?_busy_timeout=5000"
	ctx := context.Background()

	store, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "t1", []domain.Message{
		domain.UserMessage("When is the next council meeting?"),
		domain.AssistantMessage("On Tuesday."),
	}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "On Tuesday.", msgs[1].Content)
}
