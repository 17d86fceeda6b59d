package revshare

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/poolshares-go/logging"
	"github.com/bitfsorg/poolshares-go/units"
)

func makeAddr(seed byte) units.Address {
	var addr units.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func eth(s string) uint256.Int { return units.MustUnits(s) }

func ethp(s string) *uint256.Int {
	v := eth(s)
	return &v
}

var (
	admin     = makeAddr(0xA0)
	treasury  = makeAddr(0xA1)
	poolAddr  = makeAddr(0xA2)
	tokenAddr = makeAddr(0xA3)
	stakeAddr = makeAddr(0xA4)
)

// acct returns the i-th test account.
func acct(i int) units.Address { return makeAddr(byte(i)) }

func testParams() Params {
	return Params{
		Admin:               admin,
		Treasury:            treasury,
		Pool:                poolAddr,
		HardCap:             eth("1000"),
		MinimumUnit:         eth("0.2"),
		PrecisionUnit:       eth("0.2"),
		DistributionMinimum: eth("20"),
	}
}

type fixture struct {
	l        *Ledger
	dir      *Directory
	token    *MockAsset
	receiver *MockReceiver
	sink     *MockValueSink
	store    *MemStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, testParams())
}

func newFixtureWith(t *testing.T, params Params) *fixture {
	t.Helper()
	f := &fixture{
		dir:      NewDirectory(),
		token:    NewMockAsset(poolAddr),
		receiver: &MockReceiver{},
		sink:     &MockValueSink{},
		store:    NewMemStore(),
	}
	f.dir.RegisterAsset(tokenAddr, f.token)
	f.dir.RegisterReceiver(stakeAddr, f.receiver)

	l, err := New(params, Deps{Resolver: f.dir, Value: f.sink, Store: f.store})
	require.NoError(t, err)
	f.l = l
	require.NoError(t, l.WhitelistToken(admin, tokenAddr, nil))
	return f
}

// seedFounders gives accounts 1 and 2 their 1500 unit allocations.
func (f *fixture) seedFounders(t *testing.T) {
	t.Helper()
	require.NoError(t, f.l.SetOwnerShare(admin, acct(1), eth("1500")))
	require.NoError(t, f.l.SetOwnerShare(admin, acct(2), eth("1500")))
}

// fillCap replays the public contribution: 41 contributors bring the total
// to the 1000 cap.
func (f *fixture) fillCap(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	f.seedFounders(t)
	require.NoError(t, f.l.StartPhase(admin))
	for i := 3; i < 44; i++ {
		require.NoError(t, f.l.WhitelistWallet(admin, acct(i)))
	}
	require.NoError(t, f.l.SetContribution(admin, acct(3), eth("0.2")))
	require.NoError(t, f.l.Contribute(ctx, acct(4), eth("16")))
	require.NoError(t, f.l.Contribute(ctx, acct(5), eth("20")))
	require.NoError(t, f.l.Contribute(ctx, acct(6), eth("13.6")))
	require.NoError(t, f.l.Contribute(ctx, acct(3), eth("0.2")))
	require.NoError(t, f.l.Contribute(ctx, acct(7), eth("50")))
	for i := 8; i < 44; i++ {
		require.NoError(t, f.l.Contribute(ctx, acct(i), eth("25")))
	}
}

func (f *fixture) tokenBalance(t *testing.T, a units.Address) uint256.Int {
	t.Helper()
	v, err := f.token.BalanceOf(context.Background(), a)
	require.NoError(t, err)
	return v
}

func isZero(v uint256.Int) bool { return v.IsZero() }

func assertAmount(t *testing.T, want string, got uint256.Int, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, want, units.FormatUnits(got, units.Decimals), msgAndArgs...)
}

// --- Contribution phase ---

func TestFounderShares(t *testing.T) {
	f := newFixture(t)
	f.seedFounders(t)

	assert.Equal(t, uint64(37500), f.l.PercentageOf(acct(1)))
	assert.Equal(t, uint64(37500), f.l.PercentageOf(acct(2)))
	assertAmount(t, "3000", f.l.TotalSupply())
	assert.Equal(t, uint64(2), f.l.CurrentOwners())
}

func TestContribute_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)
	require.NoError(t, f.l.WhitelistWallet(admin, acct(3)))

	err := f.l.Contribute(ctx, acct(45), eth("5"))
	assert.ErrorIs(t, err, ErrNotWhitelisted)

	err = f.l.Contribute(ctx, acct(3), eth("5"))
	assert.ErrorIs(t, err, ErrInvalidPhaseState)

	require.NoError(t, f.l.StartPhase(admin))

	err = f.l.Contribute(ctx, acct(3), eth("1.3"))
	assert.ErrorIs(t, err, ErrNotDivisible)

	err = f.l.Contribute(ctx, acct(3), uint256.Int{})
	assert.ErrorIs(t, err, ErrZeroAmount)

	err = f.l.Contribute(ctx, acct(3), eth("1000.2"))
	assert.ErrorIs(t, err, ErrHardCapExceeded)

	assert.True(t, isZero(f.l.TotalContributed()))
	assert.False(t, f.l.IsOwner(acct(3)))
	assert.True(t, isZero(f.sink.Received(treasury)))
}

func TestContribute_Percentages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)
	require.NoError(t, f.l.StartPhase(admin))
	require.NoError(t, f.l.WhitelistWallet(admin, acct(4), acct(5), acct(6), acct(3)))

	require.NoError(t, f.l.SetContribution(admin, acct(3), eth("0.2")))
	assert.Equal(t, uint64(5), f.l.PercentageOf(acct(3)), "0.2 is 0.005%")

	require.NoError(t, f.l.Contribute(ctx, acct(4), eth("16")))
	assert.Equal(t, uint64(400), f.l.PercentageOf(acct(4)))

	require.NoError(t, f.l.Contribute(ctx, acct(5), eth("20")))
	assert.Equal(t, uint64(500), f.l.PercentageOf(acct(5)))

	require.NoError(t, f.l.Contribute(ctx, acct(6), eth("13.6")))
	assert.Equal(t, uint64(340), f.l.PercentageOf(acct(6)))

	require.NoError(t, f.l.Contribute(ctx, acct(3), eth("0.2")))
	assert.Equal(t, uint64(10), f.l.PercentageOf(acct(3)))

	assertAmount(t, "50", f.l.TotalContributed())
	assertAmount(t, "49.8", f.sink.Received(treasury), "administrative contributions are not forwarded")
}

func TestContribute_FillsCap(t *testing.T) {
	f := newFixture(t)
	f.fillCap(t)

	assertAmount(t, "1000", f.l.TotalContributed())
	assertAmount(t, "4000", f.l.TotalSupply())
	assertAmount(t, "999.8", f.sink.Received(treasury))
	assert.Equal(t, PhaseFinished, f.l.Phase())
	assert.Equal(t, uint64(43), f.l.TotalOwners())
	assert.Equal(t, uint64(43), f.l.CurrentOwners())
	assert.Equal(t, uint64(625), f.l.PercentageOf(acct(20)))

	err := f.l.Contribute(context.Background(), acct(20), eth("0.2"))
	assert.ErrorIs(t, err, ErrInvalidPhaseState)
	require.NoError(t, f.l.Validate())
}

func TestContribute_SinkFailureReverts(t *testing.T) {
	f := newFixture(t)
	f.seedFounders(t)
	require.NoError(t, f.l.StartPhase(admin))
	require.NoError(t, f.l.WhitelistWallet(admin, acct(3)))
	before := f.l.StateHash()

	f.sink.SendFn = func(context.Context, units.Address, uint256.Int) error {
		return assert.AnError
	}
	err := f.l.Contribute(context.Background(), acct(3), eth("10"))
	require.ErrorIs(t, err, ErrValueTransferFailed)

	assert.True(t, isZero(f.l.BalanceOf(acct(3))))
	assert.True(t, isZero(f.l.TotalContributed()))
	assert.Equal(t, uint64(2), f.l.TotalOwners())
	assert.Equal(t, before, f.l.StateHash())
}

func TestPhaseTransitions(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.l.StartPhase(acct(1)), ErrUnauthorized)
	assert.ErrorIs(t, f.l.FinishPhase(admin), ErrInvalidPhaseState)

	require.NoError(t, f.l.StartPhase(admin))
	assert.Equal(t, PhaseActive, f.l.Phase())
	assert.ErrorIs(t, f.l.StartPhase(admin), ErrInvalidPhaseState)

	assert.ErrorIs(t, f.l.FinishPhase(acct(1)), ErrUnauthorized)
	require.NoError(t, f.l.FinishPhase(admin))
	assert.Equal(t, PhaseFinished, f.l.Phase())

	require.NoError(t, f.l.SetOwnerShare(admin, acct(1), eth("10")))

	assert.ErrorIs(t, f.l.LockShares(acct(1)), ErrUnauthorized)
	require.NoError(t, f.l.LockShares(admin))
	assert.Equal(t, PhaseLocked, f.l.Phase())
	assert.ErrorIs(t, f.l.LockShares(admin), ErrLocked)

	err := f.l.SetOwnerShare(admin, acct(1), eth("20"))
	assert.ErrorIs(t, err, ErrLocked)
	assertAmount(t, "10", f.l.BalanceOf(acct(1)))
}

func TestLockWhileActiveClosesContributions(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.l.StartPhase(admin))
	require.NoError(t, f.l.WhitelistWallet(admin, acct(3)))
	require.NoError(t, f.l.LockShares(admin))

	err := f.l.Contribute(context.Background(), acct(3), eth("1"))
	assert.ErrorIs(t, err, ErrInvalidPhaseState)
}

func TestSetOwnerShare(t *testing.T) {
	params := testParams()
	params.MaxSupply = eth("5000")
	f := newFixtureWith(t, params)

	require.NoError(t, f.l.SetOwnerShare(admin, acct(1), eth("1500")))
	require.NoError(t, f.l.SetOwnerShare(admin, acct(1), eth("1000")))
	assertAmount(t, "1000", f.l.TotalSupply(), "set replaces, never adds")

	err := f.l.SetOwnerShare(admin, acct(2), eth("4000.2"))
	assert.ErrorIs(t, err, ErrSupplyCapExceeded)
	assertAmount(t, "1000", f.l.TotalSupply())

	require.NoError(t, f.l.SetOwnerShare(admin, acct(1), uint256.Int{}))
	assert.True(t, isZero(f.l.TotalSupply()))
	assert.Equal(t, uint64(0), f.l.CurrentOwners())
	assert.Equal(t, uint64(1), f.l.TotalOwners(), "registry never shrinks")

	assert.ErrorIs(t, f.l.SetOwnerShare(acct(1), acct(1), eth("1")), ErrUnauthorized)
	assert.ErrorIs(t, f.l.SetOwnerShare(admin, units.ZeroAddress, eth("1")), ErrInvalidAddress)
	require.NoError(t, f.l.Validate())
}

func TestUnauthorizedIsLogged(t *testing.T) {
	rec := logging.NewRecorder()
	l, err := New(testParams(), Deps{Logger: rec})
	require.NoError(t, err)

	require.ErrorIs(t, l.WhitelistWallet(acct(9), acct(3)), ErrUnauthorized)
	require.Len(t, rec.Lines["warn"], 1)
	assert.Contains(t, rec.Lines["warn"][0], "whitelist wallet")
	assert.False(t, l.IsWhitelisted(acct(3)))
}

func TestNew_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
		err    error
	}{
		{"no admin", func(p *Params) { p.Admin = units.ZeroAddress }, ErrInvalidAddress},
		{"no treasury", func(p *Params) { p.Treasury = units.ZeroAddress }, ErrInvalidAddress},
		{"no pool", func(p *Params) { p.Pool = units.ZeroAddress }, ErrInvalidAddress},
		{"no minimum unit", func(p *Params) { p.MinimumUnit = uint256.Int{} }, ErrZeroAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			_, err := New(p, Deps{})
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

// --- Ownership ---

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	f.fillCap(t)

	err := f.l.Transfer(acct(1), acct(3), eth("0.06"))
	assert.ErrorIs(t, err, ErrPrecisionViolation)

	require.NoError(t, f.l.Transfer(acct(1), acct(3), eth("500")))
	assert.Equal(t, uint64(25000), f.l.PercentageOf(acct(1)))
	assert.Equal(t, uint64(12510), f.l.PercentageOf(acct(3)))
	assert.Equal(t, uint64(43), f.l.TotalOwners())
	assert.Equal(t, uint64(43), f.l.CurrentOwners())

	assert.ErrorIs(t, f.l.Transfer(acct(1), units.ZeroAddress, eth("1")), ErrInvalidAddress)
	assert.ErrorIs(t, f.l.Transfer(acct(1), acct(2), uint256.Int{}), ErrZeroAmount)
	assert.ErrorIs(t, f.l.Transfer(acct(1), acct(2), eth("1000.2")), ErrInsufficientUnstakedBalance)
	assert.ErrorIs(t, f.l.Transfer(acct(45), acct(2), eth("0.2")), ErrInsufficientUnstakedBalance)
	require.NoError(t, f.l.Validate())
}

func TestTransfer_Dust(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.l.SetOwnerShare(admin, acct(1), eth("1.1")))

	err := f.l.Transfer(acct(1), acct(2), eth("1"))
	assert.ErrorIs(t, err, ErrPrecisionViolation, "would leave 0.1")

	require.NoError(t, f.l.Transfer(acct(1), acct(2), eth("0.8")))
	assertAmount(t, "0.3", f.l.BalanceOf(acct(1)))

	require.NoError(t, f.l.SetOwnerShare(admin, acct(3), eth("0.4")))
	err = f.l.Transfer(acct(3), acct(2), eth("0.2"))
	assert.ErrorIs(t, err, ErrPrecisionViolation, "would leave exactly one unit")
	require.NoError(t, f.l.Transfer(acct(3), acct(2), eth("0.4")))
	assert.True(t, isZero(f.l.BalanceOf(acct(3))))
}

func TestTransfer_AllToNewAddress(t *testing.T) {
	f := newFixture(t)
	f.fillCap(t)
	spender := acct(44)
	to := acct(45)

	require.NoError(t, f.l.IncreaseAllowance(acct(4), spender, eth("16")))
	assertAmount(t, "16", f.l.Allowance(acct(4), spender))

	err := f.l.TransferFrom(spender, acct(4), to, eth("16.2"))
	assert.ErrorIs(t, err, ErrAllowanceExceeded)

	require.NoError(t, f.l.TransferFrom(spender, acct(4), to, eth("16")))
	assert.True(t, isZero(f.l.Allowance(acct(4), spender)))
	assert.Equal(t, uint64(400), f.l.PercentageOf(to))
	assert.Equal(t, uint64(0), f.l.PercentageOf(acct(4)))
	assert.Equal(t, uint64(44), f.l.TotalOwners())
	assert.Equal(t, uint64(43), f.l.CurrentOwners())
	assert.True(t, f.l.IsOwner(acct(4)), "former holders stay registered")
	require.NoError(t, f.l.Validate())
}

func TestAllowance(t *testing.T) {
	f := newFixture(t)
	f.seedFounders(t)
	spender := acct(9)

	require.NoError(t, f.l.Approve(acct(1), spender, eth("10")))
	require.NoError(t, f.l.IncreaseAllowance(acct(1), spender, eth("5")))
	assertAmount(t, "15", f.l.Allowance(acct(1), spender))

	err := f.l.DecreaseAllowance(acct(1), spender, eth("16"))
	assert.ErrorIs(t, err, ErrAllowanceExceeded)

	require.NoError(t, f.l.DecreaseAllowance(acct(1), spender, eth("5")))
	assertAmount(t, "10", f.l.Allowance(acct(1), spender))

	require.NoError(t, f.l.Approve(acct(1), spender, eth("1")))
	assertAmount(t, "1", f.l.Allowance(acct(1), spender), "approve replaces")

	assert.ErrorIs(t, f.l.Approve(acct(1), units.ZeroAddress, eth("1")), ErrInvalidAddress)

	// a rejected transfer leaves the allowance untouched
	err = f.l.TransferFrom(spender, acct(1), acct(3), eth("0.1"))
	assert.ErrorIs(t, err, ErrPrecisionViolation)
	assertAmount(t, "1", f.l.Allowance(acct(1), spender))
}

// --- Staking ---

func TestStaking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)

	require.NoError(t, f.l.Stake(ctx, acct(1), stakeAddr, eth("600"), []byte("a")))
	require.NoError(t, f.l.Stake(ctx, acct(1), stakeAddr, eth("400"), nil))
	assertAmount(t, "1000", f.l.StakedOf(acct(1)))
	assertAmount(t, "1000", f.l.StakeOf(acct(1), stakeAddr))
	assertAmount(t, "1500", f.l.BalanceOf(acct(1)), "staking never moves the balance")
	require.Len(t, f.receiver.Calls, 2)
	assert.True(t, f.receiver.Calls[0].Stake)
	assert.Equal(t, []byte("a"), f.receiver.Calls[0].Data)

	err := f.l.Transfer(acct(1), acct(3), eth("600"))
	assert.ErrorIs(t, err, ErrInsufficientUnstakedBalance)
	require.NoError(t, f.l.Transfer(acct(1), acct(3), eth("500")))

	err = f.l.Stake(ctx, acct(1), stakeAddr, eth("0.2"), nil)
	assert.ErrorIs(t, err, ErrInsufficientUnstakedBalance)

	err = f.l.SetOwnerShare(admin, acct(1), eth("999.8"))
	assert.ErrorIs(t, err, ErrInsufficientUnstakedBalance)

	err = f.l.Unstake(ctx, acct(1), stakeAddr, eth("1000.2"), nil)
	assert.ErrorIs(t, err, ErrInsufficientStake)

	require.NoError(t, f.l.Unstake(ctx, acct(1), stakeAddr, eth("250"), nil))
	assertAmount(t, "750", f.l.StakedOf(acct(1)))
	assert.False(t, f.receiver.Calls[2].Stake)
	require.NoError(t, f.l.Transfer(acct(1), acct(3), eth("250")))

	err = f.l.Stake(ctx, acct(1), makeAddr(0xEE), eth("1"), nil)
	assert.ErrorIs(t, err, ErrUnknownReceiver)
	assert.ErrorIs(t, f.l.Stake(ctx, acct(1), stakeAddr, uint256.Int{}, nil), ErrZeroAmount)
	require.NoError(t, f.l.Validate())
}

func TestStaking_ReceiverFailureReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)
	f.receiver.NotifyStakeFn = func(context.Context, units.Address, uint256.Int, []byte) error {
		return assert.AnError
	}

	err := f.l.Stake(ctx, acct(1), stakeAddr, eth("100"), nil)
	require.ErrorIs(t, err, ErrReceiverFailed)
	assert.True(t, isZero(f.l.StakedOf(acct(1))))
	assert.True(t, isZero(f.l.StakeOf(acct(1), stakeAddr)))
}

func TestStaking_ReceiverCallbackSeesStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)
	seq := f.l.Seq()

	var transferErr, stakeErr error
	f.receiver.NotifyStakeFn = func(ctx context.Context, owner units.Address, amount uint256.Int, _ []byte) error {
		transferErr = f.l.Transfer(owner, acct(3), amount)
		stakeErr = f.l.Stake(ctx, owner, stakeAddr, eth("0.2"), nil)
		return nil
	}

	require.NoError(t, f.l.Stake(ctx, acct(1), stakeAddr, eth("1500"), nil))
	assert.ErrorIs(t, transferErr, ErrInsufficientUnstakedBalance)
	assert.ErrorIs(t, stakeErr, ErrReentrant)

	assertAmount(t, "1500", f.l.StakedOf(acct(1)))
	assertAmount(t, "1500", f.l.StakeOf(acct(1), stakeAddr))
	assertAmount(t, "1500", f.l.BalanceOf(acct(1)))
	assert.True(t, isZero(f.l.BalanceOf(acct(3))))
	assert.Len(t, f.receiver.Calls, 1)
	assert.Equal(t, seq+1, f.l.Seq(), "one commit")
	require.NoError(t, f.l.Validate())
}

func TestStaking_CallbackTransferRevertsWithStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)

	var transferErr error
	f.receiver.NotifyStakeFn = func(_ context.Context, owner units.Address, _ uint256.Int, _ []byte) error {
		transferErr = f.l.Transfer(owner, acct(3), eth("100"))
		return assert.AnError
	}

	err := f.l.Stake(ctx, acct(1), stakeAddr, eth("1000"), nil)
	require.ErrorIs(t, err, ErrReceiverFailed)
	require.NoError(t, transferErr)
	assertAmount(t, "1500", f.l.BalanceOf(acct(1)))
	assert.True(t, isZero(f.l.BalanceOf(acct(3))))
	assert.False(t, f.l.IsOwner(acct(3)))
	assert.True(t, isZero(f.l.StakedOf(acct(1))))
	require.NoError(t, f.l.Validate())
}

func TestStaking_KeepsDistributionEntitlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedFounders(t)
	require.NoError(t, f.l.Stake(ctx, acct(1), stakeAddr, eth("1500"), nil))

	f.token.Mint(poolAddr, eth("100"))
	_, err := f.l.Distribute(ctx, acct(2), tokenAddr)
	require.NoError(t, err)
	assertAmount(t, "50", f.l.ClaimableOf(acct(1), tokenAddr))
	assertAmount(t, "50", f.l.ClaimableOf(acct(2), tokenAddr))
}
