package revshare

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// Stake delegates amount of owner's unstaked units to receiver. Staked units
// stay in the owner's balance and keep earning distributions but cannot be
// transferred.
func (l *Ledger) Stake(ctx context.Context, owner, receiver units.Address, amount uint256.Int, data []byte) error {
	return l.exclusive("stake", func(s *State) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		r, err := l.deps.Resolver.Receiver(receiver)
		if err != nil {
			return err
		}
		o := s.owner(owner)
		free := o.Unstaked()
		if amount.Gt(&free) {
			return fmt.Errorf("%w: %s unstaked, stake %s",
				ErrInsufficientUnstakedBalance, l.fmtAmount(free), l.fmtAmount(amount))
		}
		o.Staked.Add(&o.Staked, &amount)
		cur := o.Stakes[receiver]
		cur.Add(&cur, &amount)
		o.Stakes[receiver] = cur

		if err := r.NotifyStake(ctx, owner, amount, data); err != nil {
			return fmt.Errorf("%w: stake to %s: %w", ErrReceiverFailed, l.fmtAddr(receiver), err)
		}
		l.log.Debug("%s staked %s to %s", l.fmtAddr(owner), l.fmtAmount(amount), l.fmtAddr(receiver))
		return nil
	})
}

// Unstake withdraws amount of owner's delegation to receiver.
func (l *Ledger) Unstake(ctx context.Context, owner, receiver units.Address, amount uint256.Int, data []byte) error {
	return l.exclusive("unstake", func(s *State) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		r, err := l.deps.Resolver.Receiver(receiver)
		if err != nil {
			return err
		}
		o := s.owner(owner)
		cur := o.Stakes[receiver]
		if amount.Gt(&cur) {
			return fmt.Errorf("%w: %s staked to %s, unstake %s",
				ErrInsufficientStake, l.fmtAmount(cur), l.fmtAddr(receiver), l.fmtAmount(amount))
		}
		cur.Sub(&cur, &amount)
		if cur.IsZero() {
			delete(o.Stakes, receiver)
		} else {
			o.Stakes[receiver] = cur
		}
		o.Staked.Sub(&o.Staked, &amount)

		if err := r.NotifyUnstake(ctx, owner, amount, data); err != nil {
			return fmt.Errorf("%w: unstake from %s: %w", ErrReceiverFailed, l.fmtAddr(receiver), err)
		}
		l.log.Debug("%s unstaked %s from %s", l.fmtAddr(owner), l.fmtAmount(amount), l.fmtAddr(receiver))
		return nil
	})
}
