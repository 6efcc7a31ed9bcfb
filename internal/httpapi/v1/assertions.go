package v1

import (
	"github.com/tinoosan/finledger/internal/storage/memory"
	"github.com/tinoosan/finledger/internal/storage/postgres"
)

// Compile-time assertions that both stores can back /readyz.
var (
	_ ReadyChecker = (*memory.Store)(nil)
	_ ReadyChecker = (*postgres.Store)(nil)
)
