package testkit

import (
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/store/memstore"
)

// Harness bundles a fresh memstore, bus and MockRPC, the same three
// collaborators every pipeline stage (indexer, checker, attacher,
// controller) takes as constructor arguments, so a test can wire up a
// pipeline of any shape without repeating the plumbing.
type Harness struct {
	Store *memstore.Store
	Bus   *bus.Bus
	RPC   *MockRPC
	Net   *chaincfg.Params
}

// New builds a Harness on regtest parameters, the network every
// deterministic fixture in this package assumes.
func New() *Harness {
	return &Harness{
		Store: memstore.New(),
		Bus:   bus.New(),
		RPC:   NewMockRPC(),
		Net:   &chaincfg.RegressionNetParams,
	}
}
