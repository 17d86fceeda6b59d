package revshare

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/blake2b"

	"github.com/bitfsorg/poolshares-go/units"
)

const (
	snapshotHeaderSize  = 88 // pool(20) + total_supply(32) + total_contributed(32) + num_entries(4)
	snapshotEntrySize   = 84 // address(20) + share(32) + staked(32)
	snapshotTrailerSize = 1  // phase(1)
)

// register appends addr to the registry the first time it is seen.
func (s *State) register(addr units.Address) {
	if _, ok := s.Registered[addr]; ok {
		return
	}
	s.Registered[addr] = uint64(len(s.Registry))
	s.Registry = append(s.Registry, addr)
}

// setBalance writes a balance and keeps the holder count and registry current.
func (s *State) setBalance(addr units.Address, o *Owner, v uint256.Int) {
	was := !o.Balance.IsZero()
	o.Balance = v
	is := !v.IsZero()
	switch {
	case !was && is:
		s.CurrentHolders++
		s.register(addr)
	case was && !is:
		s.CurrentHolders--
	}
}

// entries lists the registry with current balances, in registry order.
func (s *State) entries() []RevShareEntry {
	out := make([]RevShareEntry, len(s.Registry))
	for i, addr := range s.Registry {
		out[i].Address = addr
		if o, ok := s.Owners[addr]; ok {
			out[i].Share = o.Balance
			out[i].Staked = o.Staked
		}
	}
	return out
}

// Snapshot returns the ownership ledger in registry order.
func (l *Ledger) Snapshot() *Snapshot {
	return &Snapshot{
		Pool:             l.params.Pool,
		Phase:            l.state.Phase,
		TotalSupply:      l.state.TotalSupply,
		TotalContributed: l.state.TotalContributed,
		Entries:          l.state.entries(),
	}
}

// SerializeSnapshot encodes a Snapshot to binary format.
func SerializeSnapshot(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, ErrNilParam
	}
	if len(snap.Entries) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d entries", ErrInvalidSnapshot, len(snap.Entries))
	}
	size := snapshotHeaderSize + snapshotEntrySize*len(snap.Entries) + snapshotTrailerSize
	buf := make([]byte, size)
	offset := 0

	copy(buf[offset:offset+20], snap.Pool[:])
	offset += 20

	snap.TotalSupply.WriteToSlice(buf[offset : offset+32])
	offset += 32
	snap.TotalContributed.WriteToSlice(buf[offset : offset+32])
	offset += 32

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(snap.Entries)))
	offset += 4

	for _, e := range snap.Entries {
		copy(buf[offset:offset+20], e.Address[:])
		offset += 20
		e.Share.WriteToSlice(buf[offset : offset+32])
		offset += 32
		e.Staked.WriteToSlice(buf[offset : offset+32])
		offset += 32
	}

	buf[offset] = byte(snap.Phase)
	return buf, nil
}

// DeserializeSnapshot decodes binary data into a Snapshot.
func DeserializeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) < snapshotHeaderSize+snapshotTrailerSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidSnapshot, len(data))
	}
	offset := 0

	snap := &Snapshot{}
	copy(snap.Pool[:], data[offset:offset+20])
	offset += 20

	snap.TotalSupply.SetBytes32(data[offset : offset+32])
	offset += 32
	snap.TotalContributed.SetBytes32(data[offset : offset+32])
	offset += 32

	numEntries := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	expectedSize := snapshotHeaderSize + snapshotEntrySize*numEntries + snapshotTrailerSize
	if len(data) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes for %d entries, got %d",
			ErrInvalidSnapshot, expectedSize, numEntries, len(data))
	}

	snap.Entries = make([]RevShareEntry, numEntries)
	for i := 0; i < numEntries; i++ {
		copy(snap.Entries[i].Address[:], data[offset:offset+20])
		offset += 20
		snap.Entries[i].Share.SetBytes32(data[offset : offset+32])
		offset += 32
		snap.Entries[i].Staked.SetBytes32(data[offset : offset+32])
		offset += 32
	}

	snap.Phase = Phase(data[offset])
	if snap.Phase > PhaseLocked {
		return nil, fmt.Errorf("%w: phase %d", ErrInvalidSnapshot, snap.Phase)
	}
	return snap, nil
}

// hash digests the ownership snapshot followed by per-asset accounting and
// per-owner claims, both in a fixed order.
func (s *State) hash(pool units.Address) [32]byte {
	snap := &Snapshot{
		Pool:             pool,
		Phase:            s.Phase,
		TotalSupply:      s.TotalSupply,
		TotalContributed: s.TotalContributed,
		Entries:          s.entries(),
	}
	raw, _ := SerializeSnapshot(snap)

	h, _ := blake2b.New256(nil)
	h.Write(raw)

	var word [32]byte
	var seq [8]byte
	assets := sortedAddrs(s.Assets)
	for _, a := range assets {
		p := s.Assets[a]
		h.Write(a[:])
		for _, v := range []*uint256.Int{&p.Minimum, &p.TotalDeposited, &p.TotalUnclaimed} {
			word = v.Bytes32()
			h.Write(word[:])
		}
		binary.BigEndian.PutUint64(seq[:], p.Epoch)
		h.Write(seq[:])
	}
	for _, addr := range s.Registry {
		o, ok := s.Owners[addr]
		if !ok {
			continue
		}
		for _, a := range sortedAddrs(o.Claims) {
			c := o.Claims[a]
			h.Write(addr[:])
			h.Write(a[:])
			word = c.Claimable.Bytes32()
			h.Write(word[:])
			binary.BigEndian.PutUint64(seq[:], c.LastClaimedEpoch)
			h.Write(seq[:])
		}
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func sortedAddrs[V any](m map[units.Address]V) []units.Address {
	out := make([]units.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
