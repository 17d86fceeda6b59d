package revshare

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// StartPhase opens contributions.
func (l *Ledger) StartPhase(caller units.Address) error {
	return l.atomic("start_phase", func(s *State) error {
		if err := l.requireAdmin(caller, "start phase"); err != nil {
			return err
		}
		if s.Phase != PhaseNotStarted {
			return fmt.Errorf("%w: start from %s", ErrInvalidPhaseState, s.Phase)
		}
		l.setPhase(s, PhaseActive)
		return nil
	})
}

// FinishPhase closes contributions.
func (l *Ledger) FinishPhase(caller units.Address) error {
	return l.atomic("finish_phase", func(s *State) error {
		if err := l.requireAdmin(caller, "finish phase"); err != nil {
			return err
		}
		if s.Phase != PhaseActive {
			return fmt.Errorf("%w: finish from %s", ErrInvalidPhaseState, s.Phase)
		}
		l.setPhase(s, PhaseFinished)
		return nil
	})
}

// LockShares makes share allocations final. It also closes contributions
// if they are still open.
func (l *Ledger) LockShares(caller units.Address) error {
	return l.atomic("lock_shares", func(s *State) error {
		if err := l.requireAdmin(caller, "lock shares"); err != nil {
			return err
		}
		if s.Phase == PhaseLocked {
			return fmt.Errorf("%w: already locked", ErrLocked)
		}
		l.setPhase(s, PhaseLocked)
		return nil
	})
}

func (l *Ledger) setPhase(s *State, p Phase) {
	l.log.Info("phase %s -> %s, contributed %s, supply %s",
		s.Phase, p, l.fmtAmount(s.TotalContributed), l.fmtAmount(s.TotalSupply))
	s.Phase = p
}

// WhitelistWallet clears addrs to contribute.
func (l *Ledger) WhitelistWallet(caller units.Address, addrs ...units.Address) error {
	return l.atomic("whitelist_wallet", func(s *State) error {
		if err := l.requireAdmin(caller, "whitelist wallet"); err != nil {
			return err
		}
		for _, a := range addrs {
			if a.IsZero() {
				return fmt.Errorf("%w: whitelist entry", ErrInvalidAddress)
			}
			s.Whitelist[a] = true
		}
		return nil
	})
}

// SetOwnerShare sets owner's balance directly. It is used to seed founder
// allocations and is rejected once shares are locked.
func (l *Ledger) SetOwnerShare(caller, owner units.Address, amount uint256.Int) error {
	return l.atomic("set_owner_share", func(s *State) error {
		if err := l.requireAdmin(caller, "set owner share"); err != nil {
			return err
		}
		if s.Phase == PhaseLocked {
			return fmt.Errorf("%w: set owner share", ErrLocked)
		}
		if owner.IsZero() {
			return fmt.Errorf("%w: owner", ErrInvalidAddress)
		}
		o := s.owner(owner)
		if amount.Lt(&o.Staked) {
			return fmt.Errorf("%w: %s staked, share %s",
				ErrInsufficientUnstakedBalance, l.fmtAmount(o.Staked), l.fmtAmount(amount))
		}

		old := o.Balance
		s.TotalSupply.Sub(&s.TotalSupply, &old)
		s.setBalance(owner, o, uint256.Int{})
		if amount.IsZero() {
			return nil
		}
		return l.mint(s, owner, amount)
	})
}

// Contribute accepts value from sender, mints the same number of ownership
// units to sender and forwards the value to the treasury.
func (l *Ledger) Contribute(ctx context.Context, sender units.Address, value uint256.Int) error {
	return l.exclusive("contribute", func(s *State) error {
		if !s.Whitelist[sender] {
			return fmt.Errorf("%w: %s", ErrNotWhitelisted, l.fmtAddr(sender))
		}
		if l.deps.Value == nil {
			return fmt.Errorf("%w: no value sink", ErrNilParam)
		}
		if err := l.acceptContribution(s, sender, value); err != nil {
			return err
		}
		if err := l.deps.Value.Send(ctx, l.params.Treasury, value); err != nil {
			return fmt.Errorf("%w: forward %s to treasury: %w", ErrValueTransferFailed, l.fmtAmount(value), err)
		}
		return nil
	})
}

// SetContribution records a contribution made outside the ledger. Nothing
// is forwarded and the whitelist does not apply.
func (l *Ledger) SetContribution(caller, owner units.Address, value uint256.Int) error {
	return l.atomic("set_contribution", func(s *State) error {
		if err := l.requireAdmin(caller, "set contribution"); err != nil {
			return err
		}
		if owner.IsZero() {
			return fmt.Errorf("%w: owner", ErrInvalidAddress)
		}
		return l.acceptContribution(s, owner, value)
	})
}

func (l *Ledger) acceptContribution(s *State, owner units.Address, value uint256.Int) error {
	if s.Phase != PhaseActive {
		return fmt.Errorf("%w: contribute while %s", ErrInvalidPhaseState, s.Phase)
	}
	if value.IsZero() {
		return ErrZeroAmount
	}
	var r uint256.Int
	if r.Mod(&value, &l.params.MinimumUnit); !r.IsZero() {
		return fmt.Errorf("%w: %s by %s", ErrNotDivisible, l.fmtAmount(value), l.fmtAmount(l.params.MinimumUnit))
	}
	var total uint256.Int
	if _, overflow := total.AddOverflow(&s.TotalContributed, &value); overflow || total.Gt(&l.params.HardCap) {
		return fmt.Errorf("%w: %s contributed, %s offered, cap %s", ErrHardCapExceeded,
			l.fmtAmount(s.TotalContributed), l.fmtAmount(value), l.fmtAmount(l.params.HardCap))
	}
	if err := l.mint(s, owner, value); err != nil {
		return err
	}
	s.TotalContributed = total
	l.log.Debug("contribution of %s from %s, now %s%%", l.fmtAmount(value), l.fmtAddr(owner),
		units.FormatPercentage(l.PercentageOf(owner), PercentPrecision))
	if total.Eq(&l.params.HardCap) {
		l.setPhase(s, PhaseFinished)
	}
	return nil
}
