package revshare

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// Asset is a fungible asset the pool receives and pays out. A returned
// error, including a refused transfer, aborts the calling operation.
type Asset interface {
	// Transfer moves amount from the pool to to.
	Transfer(ctx context.Context, to units.Address, amount uint256.Int) error

	// TransferFrom moves amount from from to to using the pool's allowance.
	TransferFrom(ctx context.Context, from, to units.Address, amount uint256.Int) error

	// BalanceOf returns the amount held by owner.
	BalanceOf(ctx context.Context, owner units.Address) (uint256.Int, error)
}

// StakingReceiver is an external program that ownership is delegated to.
type StakingReceiver interface {
	// NotifyStake reports a new delegation of amount by owner.
	NotifyStake(ctx context.Context, owner units.Address, amount uint256.Int, data []byte) error

	// NotifyUnstake reports that amount of owner's delegation was released.
	NotifyUnstake(ctx context.Context, owner units.Address, amount uint256.Int, data []byte) error
}

// ValueSink receives contributed value forwarded from the pool.
type ValueSink interface {
	// Send pays amount of native value to to.
	Send(ctx context.Context, to units.Address, amount uint256.Int) error
}

// Resolver maps addresses to the external programs that live there.
type Resolver interface {
	Asset(addr units.Address) (Asset, error)
	Receiver(addr units.Address) (StakingReceiver, error)
}

// Directory is a Resolver backed by explicit registrations.
type Directory struct {
	mu        sync.RWMutex
	assets    map[units.Address]Asset
	receivers map[units.Address]StakingReceiver
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		assets:    make(map[units.Address]Asset),
		receivers: make(map[units.Address]StakingReceiver),
	}
}

// RegisterAsset binds an asset implementation to addr.
func (d *Directory) RegisterAsset(addr units.Address, a Asset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assets[addr] = a
}

// RegisterReceiver binds a staking receiver implementation to addr.
func (d *Directory) RegisterReceiver(addr units.Address, r StakingReceiver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receivers[addr] = r
}

// Asset returns the asset registered at addr.
func (d *Directory) Asset(addr units.Address) (Asset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.assets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, addr)
	}
	return a, nil
}

// Receiver returns the staking receiver registered at addr.
func (d *Directory) Receiver(addr units.Address) (StakingReceiver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.receivers[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReceiver, addr)
	}
	return r, nil
}

// Logger is the logging surface the ledger needs. *logmatic.Logger satisfies it.
type Logger interface {
	Debug(format string, a ...interface{})
	Info(format string, a ...interface{})
	Warn(format string, a ...interface{})
	Error(format string, a ...interface{})
}
