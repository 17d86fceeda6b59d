package revshare

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Snapshot codec ---

func TestSerializeSnapshot_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		snap *Snapshot
	}{
		{"empty", &Snapshot{Pool: makeAddr(0x01)}},
		{"single entry", &Snapshot{
			Pool: makeAddr(0x02), Phase: PhaseActive,
			TotalSupply: eth("10"), TotalContributed: eth("10"),
			Entries: []RevShareEntry{{Address: makeAddr(0xAA), Share: eth("10")}},
		}},
		{"multiple entries", &Snapshot{
			Pool: makeAddr(0x03), Phase: PhaseLocked,
			TotalSupply: eth("4000"), TotalContributed: eth("1000"),
			Entries: []RevShareEntry{
				{Address: makeAddr(0xAA), Share: eth("1500"), Staked: eth("700")},
				{Address: makeAddr(0xBB), Share: eth("1500")},
				{Address: makeAddr(0xCC)},
				{Address: makeAddr(0xDD), Share: eth("1000")},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := SerializeSnapshot(tt.snap)
			require.NoError(t, err)
			assert.Len(t, data, snapshotHeaderSize+snapshotEntrySize*len(tt.snap.Entries)+snapshotTrailerSize)

			decoded, err := DeserializeSnapshot(data)
			require.NoError(t, err)
			assert.Equal(t, tt.snap.Pool, decoded.Pool)
			assert.Equal(t, tt.snap.Phase, decoded.Phase)
			assert.True(t, tt.snap.TotalSupply.Eq(&decoded.TotalSupply))
			assert.True(t, tt.snap.TotalContributed.Eq(&decoded.TotalContributed))
			require.Len(t, decoded.Entries, len(tt.snap.Entries))
			for i := range tt.snap.Entries {
				assert.Equal(t, tt.snap.Entries[i].Address, decoded.Entries[i].Address)
				assert.True(t, tt.snap.Entries[i].Share.Eq(&decoded.Entries[i].Share))
				assert.True(t, tt.snap.Entries[i].Staked.Eq(&decoded.Entries[i].Staked))
			}
		})
	}
}

func TestDeserializeSnapshot_Invalid(t *testing.T) {
	_, err := DeserializeSnapshot(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	data, err := SerializeSnapshot(&Snapshot{Entries: []RevShareEntry{{Address: makeAddr(1)}}})
	require.NoError(t, err)

	_, err = DeserializeSnapshot(data[:len(data)-2])
	assert.ErrorIs(t, err, ErrInvalidSnapshot, "truncated")

	_, err = DeserializeSnapshot(append(data, 0))
	assert.ErrorIs(t, err, ErrInvalidSnapshot, "trailing byte")

	data[len(data)-1] = 9
	_, err = DeserializeSnapshot(data)
	assert.ErrorIs(t, err, ErrInvalidSnapshot, "unknown phase")

	_, err = SerializeSnapshot(nil)
	assert.ErrorIs(t, err, ErrNilParam)
}

func TestLedgerSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedFounders(t)
	require.NoError(t, f.l.Stake(context.Background(), acct(2), stakeAddr, eth("100"), nil))

	snap := f.l.Snapshot()
	assert.Equal(t, poolAddr, snap.Pool)
	assert.Equal(t, PhaseNotStarted, snap.Phase)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, acct(1), snap.Entries[0].Address)
	assertAmount(t, "1500", snap.Entries[0].Share)
	assertAmount(t, "100", snap.Entries[1].Staked)
	require.NoError(t, ValidateShareConservation(snap.Entries, snap.TotalSupply))
}

// --- Registry ---

func TestOwnerRegistry(t *testing.T) {
	f := newFixture(t)
	f.seedFounders(t)

	addr, err := f.l.OwnerAt(1)
	require.NoError(t, err)
	assert.Equal(t, acct(2), addr)

	_, err = f.l.OwnerAt(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	require.NoError(t, f.l.Transfer(acct(2), acct(3), eth("1500")))
	assert.True(t, f.l.IsOwner(acct(2)))
	assert.True(t, f.l.IsOwner(acct(3)))
	assert.False(t, f.l.IsOwner(acct(4)))
	assert.Equal(t, uint64(3), f.l.TotalOwners())
	assert.Equal(t, uint64(2), f.l.CurrentOwners())

	// coming back does not register twice
	require.NoError(t, f.l.Transfer(acct(3), acct(2), eth("0.2")))
	assert.Equal(t, uint64(3), f.l.TotalOwners())
	assert.Equal(t, uint64(3), f.l.CurrentOwners())

	require.NoError(t, f.l.Transfer(acct(1), acct(1), eth("1500")))
	assert.Equal(t, uint64(3), f.l.CurrentOwners(), "self transfer")
	assertAmount(t, "1500", f.l.BalanceOf(acct(1)))
	require.NoError(t, f.l.Validate())
}

// --- State hash ---

func TestStateHash(t *testing.T) {
	a := newFixture(t)
	b := newFixture(t)
	assert.Equal(t, a.l.StateHash(), b.l.StateHash())

	a.seedFounders(t)
	assert.NotEqual(t, a.l.StateHash(), b.l.StateHash())

	b.seedFounders(t)
	assert.Equal(t, a.l.StateHash(), b.l.StateHash())

	ctx := context.Background()
	a.token.Mint(poolAddr, eth("100"))
	_, err := a.l.Distribute(ctx, acct(1), tokenAddr)
	require.NoError(t, err)
	assert.NotEqual(t, a.l.StateHash(), b.l.StateHash(), "claims are part of the hash")

	records, err := a.store.Records()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, "distribute", last.Op)
	assert.Equal(t, a.l.Seq(), last.Seq)
	assert.Equal(t, a.l.StateHash(), last.Hash)
}

func TestValidate_DetectsCorruption(t *testing.T) {
	f := newFixture(t)
	f.seedFounders(t)
	require.NoError(t, f.l.Validate())

	f.l.state.TotalSupply = eth("1")
	assert.ErrorIs(t, f.l.Validate(), ErrInvariantViolation)
	f.l.state.TotalSupply = eth("3000")

	f.l.state.CurrentHolders = 5
	assert.ErrorIs(t, f.l.Validate(), ErrInvariantViolation)
	f.l.state.CurrentHolders = 2

	f.l.state.Owners[acct(1)].Staked = eth("1")
	assert.ErrorIs(t, f.l.Validate(), ErrInvariantViolation, "staked without stake records")
}
