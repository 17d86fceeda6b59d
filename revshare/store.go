package revshare

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// Record is a journal entry written with every committed operation.
type Record struct {
	Seq  uint64
	Op   string
	Hash [32]byte // StateHash after the operation
}

// Store persists the ledger state.
type Store interface {
	// Load returns the last saved state, or ErrNoState.
	Load() (*State, error)

	// Save replaces the saved state and appends rec to the journal.
	Save(state *State, rec Record) error

	// Records returns the journal in commit order.
	Records() ([]Record, error)

	// Close releases the store.
	Close() error
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu      sync.Mutex
	data    []byte
	records []Record
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load decodes the saved state.
func (s *MemStore) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoState
	}
	return decodeState(s.data)
}

// Save encodes state and appends rec.
func (s *MemStore) Save(state *State, rec Record) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the journal.
func (s *MemStore) Records() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...), nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

type storedAmount struct {
	Addr   [units.AddressSize]byte
	Amount [32]byte
}

type storedClaim struct {
	Asset            [units.AddressSize]byte
	Claimable        [32]byte
	LastClaimedEpoch uint64
}

type storedOwner struct {
	Addr       [units.AddressSize]byte
	Balance    [32]byte
	Staked     [32]byte
	Allowances []storedAmount
	Stakes     []storedAmount
	Claims     []storedClaim
}

type storedAsset struct {
	Addr           [units.AddressSize]byte
	Whitelisted    bool
	Minimum        [32]byte
	TotalDeposited [32]byte
	TotalUnclaimed [32]byte
	Epoch          uint64
}

type storedState struct {
	Seq              uint64
	Phase            uint8
	TotalSupply      [32]byte
	TotalContributed [32]byte
	CurrentHolders   uint64
	Registry         [][units.AddressSize]byte
	Whitelist        [][units.AddressSize]byte
	Owners           []storedOwner
	Assets           []storedAsset
}

func storeAmounts(m map[units.Address]uint256.Int) []storedAmount {
	out := make([]storedAmount, 0, len(m))
	for _, a := range sortedAddrs(m) {
		v := m[a]
		out = append(out, storedAmount{Addr: a, Amount: v.Bytes32()})
	}
	return out
}

func loadAmounts(in []storedAmount) map[units.Address]uint256.Int {
	out := make(map[units.Address]uint256.Int, len(in))
	for _, e := range in {
		var v uint256.Int
		v.SetBytes32(e.Amount[:])
		out[units.Address(e.Addr)] = v
	}
	return out
}

// encodeState gob-encodes state in a fixed key order.
func encodeState(s *State) ([]byte, error) {
	st := storedState{
		Seq:              s.Seq,
		Phase:            uint8(s.Phase),
		TotalSupply:      s.TotalSupply.Bytes32(),
		TotalContributed: s.TotalContributed.Bytes32(),
		CurrentHolders:   s.CurrentHolders,
	}
	for _, a := range s.Registry {
		st.Registry = append(st.Registry, a)
	}
	for _, a := range sortedAddrs(s.Whitelist) {
		if s.Whitelist[a] {
			st.Whitelist = append(st.Whitelist, a)
		}
	}
	for _, a := range sortedAddrs(s.Owners) {
		o := s.Owners[a]
		so := storedOwner{
			Addr:       a,
			Balance:    o.Balance.Bytes32(),
			Staked:     o.Staked.Bytes32(),
			Allowances: storeAmounts(o.Allowances),
			Stakes:     storeAmounts(o.Stakes),
		}
		for _, asset := range sortedAddrs(o.Claims) {
			c := o.Claims[asset]
			so.Claims = append(so.Claims, storedClaim{
				Asset:            asset,
				Claimable:        c.Claimable.Bytes32(),
				LastClaimedEpoch: c.LastClaimedEpoch,
			})
		}
		st.Owners = append(st.Owners, so)
	}
	for _, a := range sortedAddrs(s.Assets) {
		p := s.Assets[a]
		st.Assets = append(st.Assets, storedAsset{
			Addr:           a,
			Whitelisted:    p.Whitelisted,
			Minimum:        p.Minimum.Bytes32(),
			TotalDeposited: p.TotalDeposited.Bytes32(),
			TotalUnclaimed: p.TotalUnclaimed.Bytes32(),
			Epoch:          p.Epoch,
		})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&st); err != nil {
		return nil, fmt.Errorf("revshare: encode state: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeState rebuilds a State from encodeState output.
func decodeState(data []byte) (*State, error) {
	var st storedState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return nil, fmt.Errorf("revshare: decode state: %w", err)
	}

	s := NewState()
	s.Seq = st.Seq
	s.Phase = Phase(st.Phase)
	s.TotalSupply.SetBytes32(st.TotalSupply[:])
	s.TotalContributed.SetBytes32(st.TotalContributed[:])
	s.CurrentHolders = st.CurrentHolders
	for i, a := range st.Registry {
		s.Registry = append(s.Registry, units.Address(a))
		s.Registered[units.Address(a)] = uint64(i)
	}
	for _, a := range st.Whitelist {
		s.Whitelist[units.Address(a)] = true
	}
	for _, so := range st.Owners {
		o := newOwner()
		o.Balance.SetBytes32(so.Balance[:])
		o.Staked.SetBytes32(so.Staked[:])
		o.Allowances = loadAmounts(so.Allowances)
		o.Stakes = loadAmounts(so.Stakes)
		for _, c := range so.Claims {
			cl := &Claim{LastClaimedEpoch: c.LastClaimedEpoch}
			cl.Claimable.SetBytes32(c.Claimable[:])
			o.Claims[units.Address(c.Asset)] = cl
		}
		s.Owners[units.Address(so.Addr)] = o
	}
	for _, sa := range st.Assets {
		p := &AssetPool{Whitelisted: sa.Whitelisted, Epoch: sa.Epoch}
		p.Minimum.SetBytes32(sa.Minimum[:])
		p.TotalDeposited.SetBytes32(sa.TotalDeposited[:])
		p.TotalUnclaimed.SetBytes32(sa.TotalUnclaimed[:])
		s.Assets[units.Address(sa.Addr)] = p
	}
	return s, nil
}
