package revshare

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// errMockInsufficient is returned by MockAsset when a balance does not cover a transfer.
var errMockInsufficient = errors.New("mock asset: insufficient balance")

// MockAsset is an in-memory fungible asset for tests. Transfer pays out of
// Pool. TransferFn, when set, runs before every Transfer and may re-enter
// the ledger or refuse the transfer by returning an error.
type MockAsset struct {
	Pool       units.Address
	TransferFn func(ctx context.Context, to units.Address, amount uint256.Int) error

	mu        sync.Mutex
	balances  map[units.Address]uint256.Int
	transfers []Distribution
}

// Compile-time interface check.
var _ Asset = (*MockAsset)(nil)

// NewMockAsset creates an asset with no balances.
func NewMockAsset(pool units.Address) *MockAsset {
	return &MockAsset{Pool: pool, balances: make(map[units.Address]uint256.Int)}
}

// Mint credits amount to to out of thin air.
func (m *MockAsset) Mint(to units.Address, amount uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.balances[to]
	v.Add(&v, &amount)
	m.balances[to] = v
}

// Transfers returns every completed Transfer in order.
func (m *MockAsset) Transfers() []Distribution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Distribution(nil), m.transfers...)
}

func (m *MockAsset) move(from, to units.Address, amount uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.balances[from]
	if src.Lt(&amount) {
		return errMockInsufficient
	}
	src.Sub(&src, &amount)
	m.balances[from] = src
	dst := m.balances[to]
	dst.Add(&dst, &amount)
	m.balances[to] = dst
	return nil
}

func (m *MockAsset) Transfer(ctx context.Context, to units.Address, amount uint256.Int) error {
	if m.TransferFn != nil {
		if err := m.TransferFn(ctx, to, amount); err != nil {
			return err
		}
	}
	if err := m.move(m.Pool, to, amount); err != nil {
		return err
	}
	m.mu.Lock()
	m.transfers = append(m.transfers, Distribution{Address: to, Amount: amount})
	m.mu.Unlock()
	return nil
}

func (m *MockAsset) TransferFrom(_ context.Context, from, to units.Address, amount uint256.Int) error {
	return m.move(from, to, amount)
}

func (m *MockAsset) BalanceOf(_ context.Context, owner units.Address) (uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner], nil
}

// ReceiverCall is one notification seen by MockReceiver.
type ReceiverCall struct {
	Stake  bool // false for unstake
	Owner  units.Address
	Amount uint256.Int
	Data   []byte
}

// MockReceiver is a test double for StakingReceiver. Unset function fields
// accept the notification.
type MockReceiver struct {
	NotifyStakeFn   func(ctx context.Context, owner units.Address, amount uint256.Int, data []byte) error
	NotifyUnstakeFn func(ctx context.Context, owner units.Address, amount uint256.Int, data []byte) error

	Calls []ReceiverCall
}

// Compile-time interface check.
var _ StakingReceiver = (*MockReceiver)(nil)

func (m *MockReceiver) NotifyStake(ctx context.Context, owner units.Address, amount uint256.Int, data []byte) error {
	if m.NotifyStakeFn != nil {
		if err := m.NotifyStakeFn(ctx, owner, amount, data); err != nil {
			return err
		}
	}
	m.Calls = append(m.Calls, ReceiverCall{Stake: true, Owner: owner, Amount: amount, Data: data})
	return nil
}

func (m *MockReceiver) NotifyUnstake(ctx context.Context, owner units.Address, amount uint256.Int, data []byte) error {
	if m.NotifyUnstakeFn != nil {
		if err := m.NotifyUnstakeFn(ctx, owner, amount, data); err != nil {
			return err
		}
	}
	m.Calls = append(m.Calls, ReceiverCall{Owner: owner, Amount: amount, Data: data})
	return nil
}

// MockValueSink is a test double for ValueSink that totals what it receives.
type MockValueSink struct {
	SendFn func(ctx context.Context, to units.Address, amount uint256.Int) error

	mu       sync.Mutex
	received map[units.Address]uint256.Int
}

// Compile-time interface check.
var _ ValueSink = (*MockValueSink)(nil)

func (m *MockValueSink) Send(ctx context.Context, to units.Address, amount uint256.Int) error {
	if m.SendFn != nil {
		if err := m.SendFn(ctx, to, amount); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.received == nil {
		m.received = make(map[units.Address]uint256.Int)
	}
	v := m.received[to]
	v.Add(&v, &amount)
	m.received[to] = v
	return nil
}

// Received returns the total sent to to.
func (m *MockValueSink) Received(to units.Address) uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received[to]
}
