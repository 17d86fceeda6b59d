package revshare

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/config"
	"github.com/bitfsorg/poolshares-go/logging"
	"github.com/bitfsorg/poolshares-go/units"
)

// Params are the fixed parameters of a pool.
type Params struct {
	Admin    units.Address // may call administrative operations
	Treasury units.Address // receives contributed value
	Pool     units.Address // the pool's own address, custodian of distributable assets

	HardCap             uint256.Int // maximum total contribution
	MinimumUnit         uint256.Int // every contribution is a multiple of this
	PrecisionUnit       uint256.Int // transfers move and leave multiples of this; zero disables the check
	MaxSupply           uint256.Int // bound on total supply; zero means unbounded
	DistributionMinimum uint256.Int // default per-asset round minimum

	Mainnet bool // address formatting in logs
}

// ParamsFromConfig resolves cfg into Params.
func ParamsFromConfig(cfg config.Config) (Params, error) {
	r, err := cfg.Resolve()
	if err != nil {
		return Params{}, err
	}
	return Params{
		Admin:               r.Admin,
		Treasury:            r.Treasury,
		Pool:                r.Pool,
		HardCap:             r.HardCap,
		MinimumUnit:         r.MinimumUnit,
		PrecisionUnit:       r.PrecisionUnit,
		MaxSupply:           r.MaxSupply,
		DistributionMinimum: r.DistributionMinimum,
		Mainnet:             r.Mainnet,
	}, nil
}

func (p Params) validate() error {
	if p.Admin.IsZero() {
		return fmt.Errorf("%w: admin", ErrInvalidAddress)
	}
	if p.Treasury.IsZero() {
		return fmt.Errorf("%w: treasury", ErrInvalidAddress)
	}
	if p.Pool.IsZero() {
		return fmt.Errorf("%w: pool", ErrInvalidAddress)
	}
	if p.MinimumUnit.IsZero() {
		return fmt.Errorf("%w: minimum unit", ErrZeroAmount)
	}
	return nil
}

// Deps are the collaborators of a Ledger. Every field is optional.
type Deps struct {
	Resolver Resolver  // assets and staking receivers; defaults to an empty Directory
	Value    ValueSink // forwards contributions to the treasury
	Store    Store     // defaults to a MemStore
	Logger   Logger    // defaults to logging.Nop
}

// Ledger is the pool: ownership, contribution phase, staking and
// distribution accounting over one State.
//
// A Ledger is not safe for concurrent use. Operations are meant to be
// serialized by the host, or by an Executor. Each operation is atomic: on
// any error, including one returned by an external collaborator after the
// ledger already updated itself, the state is restored to what it was
// before the call. The one exception is ErrPersist: the operation took
// effect in memory but the store did not record it.
//
// Internal effects are always applied before external calls, so a
// collaborator that calls back into the ledger sees the post-effect state.
// Operations that call out (Contribute, Stake, Unstake, Deposit,
// Distribute and the claims) cannot be entered from a callback and fail
// with ErrReentrant. The rest may be, and commit or revert with the
// operation that is running.
type Ledger struct {
	params Params
	deps   Deps
	log    Logger
	state  *State
	frames []*frame
}

// frame is one running operation. A frame reverts either to a full copy of
// the state or, for a step, through its undo func.
type frame struct {
	saved *State
	undo  func(s *State)
}

func (f *frame) revert(s *State) {
	if f.saved != nil {
		*s = *f.saved
		return
	}
	if f.undo != nil {
		f.undo(s)
	}
}

// New opens a Ledger over the state held in deps.Store, or a fresh state if
// the store is empty.
func New(params Params, deps Deps) (*Ledger, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if deps.Resolver == nil {
		deps.Resolver = NewDirectory()
	}
	if deps.Store == nil {
		deps.Store = NewMemStore()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}

	l := &Ledger{params: params, deps: deps, log: deps.Logger}

	st, err := deps.Store.Load()
	switch {
	case errors.Is(err, ErrNoState):
		l.state = NewState()
	case err != nil:
		return nil, fmt.Errorf("revshare: load state: %w", err)
	default:
		l.state = st
		if err := l.state.validate(&l.params); err != nil {
			return nil, fmt.Errorf("revshare: stored state: %w", err)
		}
	}
	l.log.Info("ledger opened at seq %d, phase %s, %d owners", l.state.Seq, l.state.Phase, len(l.state.Registry))
	return l, nil
}

// OpenFromConfig opens the ledger kept in cfg.DataDir with a bbolt store and
// a logmatic logger at cfg.LogLevel.
func OpenFromConfig(cfg config.Config, resolver Resolver, value ValueSink) (*Ledger, error) {
	params, err := ParamsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger := logging.MustNew(cfg.LogLevel)
	store, err := OpenBoltStore(filepath.Join(cfg.DataDir, "ledger.db"))
	if err != nil {
		return nil, err
	}
	l, err := New(params, Deps{Resolver: resolver, Value: value, Store: store, Logger: logger})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the store.
func (l *Ledger) Close() error {
	return l.deps.Store.Close()
}

// atomic runs fn against the live state. If fn fails the state is rolled
// back. The outermost successful call commits to the store.
func (l *Ledger) atomic(op string, fn func(s *State) error) error {
	if n := len(l.frames); n > 0 {
		top := l.frames[n-1]
		if top.saved == nil {
			// a step is being re-entered: it needs a full copy to revert
			// whatever the nested operation does
			top.saved = l.state.Clone()
			if top.undo != nil {
				top.undo(top.saved)
			}
		}
	}
	return l.run(op, &frame{saved: l.state.Clone()}, fn)
}

// exclusive is atomic for operations that call out. They may not run inside
// another operation, since the outer one could revert them after the value
// has moved.
func (l *Ledger) exclusive(op string, fn func(s *State) error) error {
	if len(l.frames) > 0 {
		l.log.Warn("%s rejected: called back during another operation", op)
		return fmt.Errorf("%w: %s", ErrReentrant, op)
	}
	return l.atomic(op, fn)
}

// step runs fn inside the current operation without copying the state.
// undo must put back everything fn changes.
func (l *Ledger) step(op string, undo func(s *State), fn func(s *State) error) error {
	return l.run(op, &frame{undo: undo}, fn)
}

func (l *Ledger) run(op string, f *frame, fn func(s *State) error) error {
	l.frames = append(l.frames, f)
	err := fn(l.state)
	l.frames = l.frames[:len(l.frames)-1]
	if err != nil {
		f.revert(l.state)
		l.log.Debug("%s reverted: %v", op, err)
		return err
	}
	if len(l.frames) > 0 {
		return nil
	}

	l.state.Seq++
	rec := Record{Seq: l.state.Seq, Op: op, Hash: l.state.hash(l.params.Pool)}
	if err := l.deps.Store.Save(l.state, rec); err != nil {
		l.log.Error("%s committed in memory but not persisted: %v", op, err)
		return fmt.Errorf("%w: %s: %w", ErrPersist, op, err)
	}
	l.log.Debug("%s committed at seq %d", op, rec.Seq)
	return nil
}

func (l *Ledger) requireAdmin(caller units.Address, op string) error {
	if caller != l.params.Admin {
		l.log.Warn("%s rejected: %s is not the administrator", op, l.fmtAddr(caller))
		return fmt.Errorf("%w: %s requires the administrator", ErrUnauthorized, op)
	}
	return nil
}

func (l *Ledger) fmtAddr(a units.Address) string {
	return a.Format(l.params.Mainnet)
}

func (l *Ledger) fmtAmount(v uint256.Int) string {
	return units.FormatUnits(v, units.Decimals)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Params returns the pool parameters.
func (l *Ledger) Params() Params { return l.params }

// Phase returns the contribution phase.
func (l *Ledger) Phase() Phase { return l.state.Phase }

// Seq returns the number of committed operations.
func (l *Ledger) Seq() uint64 { return l.state.Seq }

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() uint256.Int { return l.state.TotalSupply }

// TotalContributed returns the value accepted by the contribution phase.
func (l *Ledger) TotalContributed() uint256.Int { return l.state.TotalContributed }

// BalanceOf returns owner's ownership units, staked ones included.
func (l *Ledger) BalanceOf(owner units.Address) uint256.Int {
	if o, ok := l.state.Owners[owner]; ok {
		return o.Balance
	}
	return uint256.Int{}
}

// StakedOf returns the part of owner's balance delegated to receivers.
func (l *Ledger) StakedOf(owner units.Address) uint256.Int {
	if o, ok := l.state.Owners[owner]; ok {
		return o.Staked
	}
	return uint256.Int{}
}

// StakeOf returns owner's delegation to receiver.
func (l *Ledger) StakeOf(owner, receiver units.Address) uint256.Int {
	if o, ok := l.state.Owners[owner]; ok {
		return o.Stakes[receiver]
	}
	return uint256.Int{}
}

// Allowance returns what spender may still move out of owner's balance.
func (l *Ledger) Allowance(owner, spender units.Address) uint256.Int {
	if o, ok := l.state.Owners[owner]; ok {
		return o.Allowances[spender]
	}
	return uint256.Int{}
}

// PercentageOf returns owner's share where PercentPrecision is 100%. While
// contributions are open the base includes the unsold part of the hard cap.
func (l *Ledger) PercentageOf(owner units.Address) uint64 {
	b := l.BalanceOf(owner)
	base := l.percentBase()
	return percentage(&b, &base)
}

func (l *Ledger) percentBase() uint256.Int {
	base := l.state.TotalSupply
	if l.state.Phase >= PhaseFinished || !l.state.TotalContributed.Lt(&l.params.HardCap) {
		return base
	}
	var unsold uint256.Int
	unsold.Sub(&l.params.HardCap, &l.state.TotalContributed)
	base.Add(&base, &unsold)
	return base
}

// TotalOwners returns the number of addresses that ever held shares.
func (l *Ledger) TotalOwners() uint64 { return uint64(len(l.state.Registry)) }

// CurrentOwners returns the number of addresses holding shares now.
func (l *Ledger) CurrentOwners() uint64 { return l.state.CurrentHolders }

// OwnerAt returns the registry entry at index.
func (l *Ledger) OwnerAt(index uint64) (units.Address, error) {
	if index >= uint64(len(l.state.Registry)) {
		return units.Address{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(l.state.Registry))
	}
	return l.state.Registry[index], nil
}

// IsOwner reports whether addr ever held shares.
func (l *Ledger) IsOwner(addr units.Address) bool {
	_, ok := l.state.Registered[addr]
	return ok
}

// IsWhitelisted reports whether addr may contribute.
func (l *Ledger) IsWhitelisted(addr units.Address) bool { return l.state.Whitelist[addr] }

// IsAssetWhitelisted reports whether asset may be distributed.
func (l *Ledger) IsAssetWhitelisted(asset units.Address) bool {
	p, ok := l.state.Assets[asset]
	return ok && p.Whitelisted
}

// DistributionMinimum returns the smallest inflow of asset worth a round.
func (l *Ledger) DistributionMinimum(asset units.Address) uint256.Int {
	if p, ok := l.state.Assets[asset]; ok {
		return p.Minimum
	}
	return uint256.Int{}
}

// ClaimableOf returns what owner can claim of asset.
func (l *Ledger) ClaimableOf(owner, asset units.Address) uint256.Int {
	if o, ok := l.state.Owners[owner]; ok {
		if c, ok := o.Claims[asset]; ok {
			return c.Claimable
		}
	}
	return uint256.Int{}
}

// TotalDistributed returns everything ever distributed of asset.
func (l *Ledger) TotalDistributed(asset units.Address) uint256.Int {
	if p, ok := l.state.Assets[asset]; ok {
		return p.TotalDeposited
	}
	return uint256.Int{}
}

// TotalUnclaimed returns the credited but unpaid amount of asset.
func (l *Ledger) TotalUnclaimed(asset units.Address) uint256.Int {
	if p, ok := l.state.Assets[asset]; ok {
		return p.TotalUnclaimed
	}
	return uint256.Int{}
}

// DistributionEpoch returns the number of rounds distributed for asset.
func (l *Ledger) DistributionEpoch(asset units.Address) uint64 {
	if p, ok := l.state.Assets[asset]; ok {
		return p.Epoch
	}
	return 0
}

// DistributionActive reports whether a round of asset is still being drained.
func (l *Ledger) DistributionActive(asset units.Address) bool {
	u := l.TotalUnclaimed(asset)
	return !u.IsZero()
}

// HasClaimed reports whether owner was fully paid out for epoch of asset.
func (l *Ledger) HasClaimed(owner, asset units.Address, epoch uint64) bool {
	if epoch == 0 {
		return false
	}
	if o, ok := l.state.Owners[owner]; ok {
		if c, ok := o.Claims[asset]; ok {
			return c.LastClaimedEpoch >= epoch
		}
	}
	return false
}

// Validate checks every ledger invariant.
func (l *Ledger) Validate() error {
	return l.state.validate(&l.params)
}

// StateHash returns the digest recorded with the last commit.
func (l *Ledger) StateHash() [32]byte {
	return l.state.hash(l.params.Pool)
}
