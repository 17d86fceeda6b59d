package revshare

import (
	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// PercentPrecision is 100% in the fixed-point percentage returned by
// PercentageOf: one unit is a thousandth of a percent.
const PercentPrecision = 100000

// Phase is the contribution phase. Transitions only move forward.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseActive
	PhaseFinished
	PhaseLocked
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	case PhaseLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Owner is the ledger record of one address.
type Owner struct {
	Balance    uint256.Int                   // ownership units held, staked ones included
	Staked     uint256.Int                   // sum of Stakes
	Allowances map[units.Address]uint256.Int // spender -> approved amount
	Stakes     map[units.Address]uint256.Int // receiver -> delegated amount
	Claims     map[units.Address]*Claim      // asset -> claim state
}

func newOwner() *Owner {
	return &Owner{
		Allowances: make(map[units.Address]uint256.Int),
		Stakes:     make(map[units.Address]uint256.Int),
		Claims:     make(map[units.Address]*Claim),
	}
}

// Unstaked returns the freely transferable part of the balance.
func (o *Owner) Unstaked() uint256.Int {
	var free uint256.Int
	free.Sub(&o.Balance, &o.Staked)
	return free
}

// Claim is an owner's position in one distributable asset.
type Claim struct {
	Claimable        uint256.Int
	LastClaimedEpoch uint64
}

// AssetPool is the distribution accounting of one asset.
type AssetPool struct {
	Whitelisted    bool
	Minimum        uint256.Int // smallest inflow worth a round
	TotalDeposited uint256.Int // everything ever distributed
	TotalUnclaimed uint256.Int // credited but not yet paid out
	Epoch          uint64      // rounds so far
}

// State is the complete ledger. It is owned by a Ledger and only mutated
// through its operations.
type State struct {
	Seq              uint64 // committed operations
	Phase            Phase
	TotalSupply      uint256.Int
	TotalContributed uint256.Int
	CurrentHolders   uint64

	Owners     map[units.Address]*Owner
	Registry   []units.Address          // append-only, index-stable
	Registered map[units.Address]uint64 // address -> registry index
	Whitelist  map[units.Address]bool
	Assets     map[units.Address]*AssetPool
}

// NewState returns an empty ledger state.
func NewState() *State {
	return &State{
		Owners:     make(map[units.Address]*Owner),
		Registered: make(map[units.Address]uint64),
		Whitelist:  make(map[units.Address]bool),
		Assets:     make(map[units.Address]*AssetPool),
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		Seq:              s.Seq,
		Phase:            s.Phase,
		TotalSupply:      s.TotalSupply,
		TotalContributed: s.TotalContributed,
		CurrentHolders:   s.CurrentHolders,
		Owners:           make(map[units.Address]*Owner, len(s.Owners)),
		Registry:         append([]units.Address(nil), s.Registry...),
		Registered:       make(map[units.Address]uint64, len(s.Registered)),
		Whitelist:        make(map[units.Address]bool, len(s.Whitelist)),
		Assets:           make(map[units.Address]*AssetPool, len(s.Assets)),
	}
	for addr, o := range s.Owners {
		co := &Owner{
			Balance:    o.Balance,
			Staked:     o.Staked,
			Allowances: make(map[units.Address]uint256.Int, len(o.Allowances)),
			Stakes:     make(map[units.Address]uint256.Int, len(o.Stakes)),
			Claims:     make(map[units.Address]*Claim, len(o.Claims)),
		}
		for k, v := range o.Allowances {
			co.Allowances[k] = v
		}
		for k, v := range o.Stakes {
			co.Stakes[k] = v
		}
		for k, v := range o.Claims {
			cl := *v
			co.Claims[k] = &cl
		}
		c.Owners[addr] = co
	}
	for k, v := range s.Registered {
		c.Registered[k] = v
	}
	for k, v := range s.Whitelist {
		c.Whitelist[k] = v
	}
	for k, v := range s.Assets {
		p := *v
		c.Assets[k] = &p
	}
	return c
}

// owner returns the record for addr, creating it if needed.
func (s *State) owner(addr units.Address) *Owner {
	o, ok := s.Owners[addr]
	if !ok {
		o = newOwner()
		s.Owners[addr] = o
	}
	if o.Allowances == nil {
		o.Allowances = make(map[units.Address]uint256.Int)
	}
	if o.Stakes == nil {
		o.Stakes = make(map[units.Address]uint256.Int)
	}
	if o.Claims == nil {
		o.Claims = make(map[units.Address]*Claim)
	}
	return o
}

// claim returns the owner's claim record for asset, creating it if needed.
func (o *Owner) claim(asset units.Address) *Claim {
	c, ok := o.Claims[asset]
	if !ok {
		c = &Claim{}
		o.Claims[asset] = c
	}
	return c
}

// RevShareEntry is one registry position in a snapshot.
type RevShareEntry struct {
	Address units.Address
	Share   uint256.Int // ownership units held
	Staked  uint256.Int
}

// Snapshot is an ordered, registry-indexed view of the ownership ledger.
type Snapshot struct {
	Pool             units.Address
	Phase            Phase
	TotalSupply      uint256.Int
	TotalContributed uint256.Int
	Entries          []RevShareEntry
}

// Distribution is one owner's credit in a round.
type Distribution struct {
	Address units.Address
	Amount  uint256.Int
}

// Round describes a completed distribute call.
type Round struct {
	Asset   units.Address
	Epoch   uint64
	Amount  uint256.Int
	Credits []Distribution
}

// Payout is one transfer made by a claim or withdrawal.
type Payout struct {
	Owner  units.Address
	Asset  units.Address
	Amount uint256.Int
}
