package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/ledger/internal/adapters/storage/storetest"
	"github.com/PabloGalante/ledger/internal/domain"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		return openTestStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "")
	require.Error(t, err)
}
