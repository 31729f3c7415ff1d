package memory_test

import (
	"testing"

	"github.com/PabloGalante/ledger/internal/adapters/storage/memory"
	"github.com/PabloGalante/ledger/internal/adapters/storage/storetest"
	"github.com/PabloGalante/ledger/internal/domain"
)

func TestRecordStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		return memory.NewRecordStore()
	})
}
