package revshare

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// ClaimTokens pays owner everything claimable of asset. With nothing
// claimable it pays zero and succeeds.
func (l *Ledger) ClaimTokens(ctx context.Context, owner, asset units.Address) (uint256.Int, error) {
	var paid uint256.Int
	err := l.exclusive("claim", func(s *State) error {
		var err error
		paid, err = l.payout(ctx, s, owner, asset, nil)
		return err
	})
	if err != nil {
		return uint256.Int{}, err
	}
	return paid, nil
}

// WithdrawTokens pays owner part of their claimable asset and leaves the
// rest for later.
func (l *Ledger) WithdrawTokens(ctx context.Context, owner, asset units.Address, amount uint256.Int) error {
	return l.exclusive("withdraw", func(s *State) error {
		if amount.IsZero() {
			return ErrZeroAmount
		}
		_, err := l.payout(ctx, s, owner, asset, &amount)
		return err
	})
}

// BatchClaim claims on behalf of registry entries [start, end). end is
// clamped to the registry size. Entries with nothing to claim are skipped.
//
// Each payout commits on its own, since a completed asset transfer cannot
// be taken back. The batch stops at the first failed payout and returns
// the payouts made so far with an error naming the index to resume from.
func (l *Ledger) BatchClaim(ctx context.Context, start, end uint64, asset units.Address) ([]Payout, error) {
	var payouts []Payout
	var failed error
	err := l.exclusive("batch_claim", func(s *State) error {
		if _, ok := s.Assets[asset]; !ok {
			return fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, l.fmtAddr(asset))
		}
		n := uint64(len(s.Registry))
		if end > n {
			end = n
		}
		if start > end {
			return fmt.Errorf("%w: [%d, %d) of %d", ErrIndexOutOfRange, start, end, n)
		}
		for i := start; i < end; i++ {
			owner := l.state.Registry[i]
			var paid uint256.Int
			err := l.step("claim", claimUndo(l.state, owner, asset), func(s *State) error {
				var err error
				paid, err = l.payout(ctx, s, owner, asset, nil)
				return err
			})
			if err != nil {
				failed = fmt.Errorf("batch claim stopped at index %d: %w", i, err)
				return nil
			}
			if !paid.IsZero() {
				payouts = append(payouts, Payout{Owner: owner, Asset: asset, Amount: paid})
			}
		}
		return nil
	})
	if err != nil {
		// payouts already reached their owners even if the commit failed
		return payouts, err
	}
	return payouts, failed
}

// claimUndo returns a func that puts owner's claim on asset and the asset's
// unclaimed total back to their current values. That is all payout changes.
func claimUndo(s *State, owner, asset units.Address) func(*State) {
	var unclaimed uint256.Int
	if p, ok := s.Assets[asset]; ok {
		unclaimed = p.TotalUnclaimed
	}
	var prev *Claim
	if o, ok := s.Owners[owner]; ok {
		if c, ok := o.Claims[asset]; ok {
			cp := *c
			prev = &cp
		}
	}
	return func(s *State) {
		if p, ok := s.Assets[asset]; ok {
			p.TotalUnclaimed = unclaimed
		}
		if prev == nil {
			return
		}
		if o, ok := s.Owners[owner]; ok {
			c := *prev
			o.Claims[asset] = &c
		}
	}
}

// payout transfers amount, or everything when amount is nil, of owner's
// claimable asset. The claim is debited before the asset is called.
func (l *Ledger) payout(ctx context.Context, s *State, owner, asset units.Address, amount *uint256.Int) (uint256.Int, error) {
	p, ok := s.Assets[asset]
	if !ok {
		return uint256.Int{}, fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, l.fmtAddr(asset))
	}
	var claimable uint256.Int
	if o, ok := s.Owners[owner]; ok {
		if c, ok := o.Claims[asset]; ok {
			claimable = c.Claimable
		}
	}
	want := claimable
	if amount != nil {
		if amount.Gt(&claimable) {
			return uint256.Int{}, fmt.Errorf("%w: %s claimable, withdraw %s",
				ErrInsufficientClaimable, l.fmtAmount(claimable), l.fmtAmount(*amount))
		}
		want = *amount
	}
	if want.IsZero() {
		return uint256.Int{}, nil
	}
	a, err := l.deps.Resolver.Asset(asset)
	if err != nil {
		return uint256.Int{}, err
	}

	c := s.owner(owner).claim(asset)
	c.Claimable.Sub(&c.Claimable, &want)
	if c.Claimable.IsZero() {
		c.LastClaimedEpoch = p.Epoch
	}
	p.TotalUnclaimed.Sub(&p.TotalUnclaimed, &want)

	if err := a.Transfer(ctx, owner, want); err != nil {
		return uint256.Int{}, fmt.Errorf("%w: pay %s to %s: %w",
			ErrAssetTransferFailed, l.fmtAmount(want), l.fmtAddr(owner), err)
	}
	l.log.Debug("paid %s of %s to %s", l.fmtAmount(want), l.fmtAddr(asset), l.fmtAddr(owner))
	return want, nil
}
