package revshare

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// percentage returns balance/supply scaled to PercentPrecision, truncated.
func percentage(balance, supply *uint256.Int) uint64 {
	if supply.IsZero() {
		return 0
	}
	p, _ := new(uint256.Int).MulDivOverflow(balance, uint256.NewInt(PercentPrecision), supply)
	return p.Uint64()
}

// Transfer moves amount of from's unstaked units to to.
func (l *Ledger) Transfer(from, to units.Address, amount uint256.Int) error {
	return l.atomic("transfer", func(s *State) error {
		return l.transfer(s, from, to, amount)
	})
}

// Approve sets spender's allowance over owner's units to amount.
func (l *Ledger) Approve(owner, spender units.Address, amount uint256.Int) error {
	return l.atomic("approve", func(s *State) error {
		if spender.IsZero() {
			return fmt.Errorf("%w: spender", ErrInvalidAddress)
		}
		setAllowance(s.owner(owner), spender, amount)
		return nil
	})
}

// IncreaseAllowance raises spender's allowance by added.
func (l *Ledger) IncreaseAllowance(owner, spender units.Address, added uint256.Int) error {
	return l.atomic("increase_allowance", func(s *State) error {
		if spender.IsZero() {
			return fmt.Errorf("%w: spender", ErrInvalidAddress)
		}
		o := s.owner(owner)
		cur := o.Allowances[spender]
		var next uint256.Int
		if _, overflow := next.AddOverflow(&cur, &added); overflow {
			return fmt.Errorf("%w: allowance", ErrOverflow)
		}
		setAllowance(o, spender, next)
		return nil
	})
}

// DecreaseAllowance lowers spender's allowance by subtracted.
func (l *Ledger) DecreaseAllowance(owner, spender units.Address, subtracted uint256.Int) error {
	return l.atomic("decrease_allowance", func(s *State) error {
		o := s.owner(owner)
		cur := o.Allowances[spender]
		if subtracted.Gt(&cur) {
			return fmt.Errorf("%w: allowance %s, decrease %s",
				ErrAllowanceExceeded, l.fmtAmount(cur), l.fmtAmount(subtracted))
		}
		var next uint256.Int
		next.Sub(&cur, &subtracted)
		setAllowance(o, spender, next)
		return nil
	})
}

// TransferFrom moves amount from from to to on behalf of spender, consuming
// spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to units.Address, amount uint256.Int) error {
	return l.atomic("transfer_from", func(s *State) error {
		o := s.owner(from)
		allowed := o.Allowances[spender]
		if amount.Gt(&allowed) {
			return fmt.Errorf("%w: allowance %s, transfer %s",
				ErrAllowanceExceeded, l.fmtAmount(allowed), l.fmtAmount(amount))
		}
		var rest uint256.Int
		rest.Sub(&allowed, &amount)
		setAllowance(o, spender, rest)
		return l.transfer(s, from, to, amount)
	})
}

func setAllowance(o *Owner, spender units.Address, v uint256.Int) {
	if v.IsZero() {
		delete(o.Allowances, spender)
		return
	}
	o.Allowances[spender] = v
}

func (l *Ledger) transfer(s *State, from, to units.Address, amount uint256.Int) error {
	if to.IsZero() {
		return fmt.Errorf("%w: transfer to zero address", ErrInvalidAddress)
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	src := s.owner(from)
	free := src.Unstaked()
	if amount.Gt(&free) {
		return fmt.Errorf("%w: %s unstaked, transfer %s",
			ErrInsufficientUnstakedBalance, l.fmtAmount(free), l.fmtAmount(amount))
	}
	if err := l.checkPrecision(&src.Balance, &amount); err != nil {
		return err
	}

	var rest uint256.Int
	rest.Sub(&src.Balance, &amount)
	s.setBalance(from, src, rest)

	dst := s.owner(to)
	var next uint256.Int
	next.Add(&dst.Balance, &amount)
	s.setBalance(to, dst, next)

	l.log.Debug("transfer %s from %s to %s", l.fmtAmount(amount), l.fmtAddr(from), l.fmtAddr(to))
	return nil
}

// checkPrecision requires amount to be a whole number of precision units
// and the sender to keep either nothing or more than one unit.
func (l *Ledger) checkPrecision(balance, amount *uint256.Int) error {
	unit := &l.params.PrecisionUnit
	if unit.IsZero() {
		return nil
	}
	var r uint256.Int
	if r.Mod(amount, unit); !r.IsZero() {
		return fmt.Errorf("%w: %s is not a multiple of %s",
			ErrPrecisionViolation, l.fmtAmount(*amount), l.fmtAmount(*unit))
	}
	var rest uint256.Int
	rest.Sub(balance, amount)
	if !rest.IsZero() && !rest.Gt(unit) {
		return fmt.Errorf("%w: leaves %s", ErrPrecisionViolation, l.fmtAmount(rest))
	}
	return nil
}

// mint credits amount of new units to to, bounded by MaxSupply.
func (l *Ledger) mint(s *State, to units.Address, amount uint256.Int) error {
	var supply uint256.Int
	if _, overflow := supply.AddOverflow(&s.TotalSupply, &amount); overflow {
		return fmt.Errorf("%w: total supply", ErrOverflow)
	}
	if !l.params.MaxSupply.IsZero() && supply.Gt(&l.params.MaxSupply) {
		return fmt.Errorf("%w: supply would be %s of %s",
			ErrSupplyCapExceeded, l.fmtAmount(supply), l.fmtAmount(l.params.MaxSupply))
	}
	o := s.owner(to)
	var next uint256.Int
	next.Add(&o.Balance, &amount)
	s.setBalance(to, o, next)
	s.TotalSupply = supply
	return nil
}
