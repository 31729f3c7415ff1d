package firestore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/ledger/internal/adapters/storage/firestore"
	"github.com/PabloGalante/ledger/internal/adapters/storage/storetest"
	"github.com/PabloGalante/ledger/internal/domain"
)

// openTestStore connects to the Firestore emulator. Each store gets its own
// project so subtests start empty.
func openTestStore(t *testing.T) *firestore.Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	s, err := firestore.NewStore(context.Background(), "ledger-test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		return openTestStore(t)
	})
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := firestore.NewStore(context.Background(), "")
	require.Error(t, err)
}
