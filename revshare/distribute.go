package revshare

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// DistributeRevenue calculates per-owner credits for a round of total.
// Each entry receives total scaled by its percentage of totalShares,
// truncated to PercentPrecision. The last entry holding shares also gets
// the remainder, so credits always sum to total.
func DistributeRevenue(total uint256.Int, entries []RevShareEntry, totalShares uint256.Int) ([]Distribution, error) {
	if total.IsZero() {
		return nil, ErrZeroAmount
	}
	if totalShares.IsZero() {
		return nil, ErrNoShares
	}
	last := -1
	var sum uint256.Int
	for i := range entries {
		if !entries[i].Share.IsZero() {
			last = i
			sum.Add(&sum, &entries[i].Share)
		}
	}
	if last < 0 {
		return nil, ErrNoShares
	}
	if !sum.Eq(&totalShares) {
		return nil, fmt.Errorf("%w: entries hold %s of %s shares", ErrInvariantViolation, sum.Dec(), totalShares.Dec())
	}

	precision := uint256.NewInt(PercentPrecision)
	distributions := make([]Distribution, len(entries))
	var distributed uint256.Int

	for i := range entries {
		distributions[i].Address = entries[i].Address
		if entries[i].Share.IsZero() {
			continue
		}
		if i == last {
			// Last shareholder gets remainder
			distributions[i].Amount.Sub(&total, &distributed)
			continue
		}
		pct := uint256.NewInt(percentage(&entries[i].Share, &totalShares))
		amount, overflow := new(uint256.Int).MulDivOverflow(&total, pct, precision)
		if overflow {
			return nil, fmt.Errorf("%w: credit for entry %d", ErrOverflow, i)
		}
		distributions[i].Amount = *amount
		distributed.Add(&distributed, amount)
	}

	return distributions, nil
}

// WhitelistToken enables asset for distribution with the given round minimum.
// A nil minimum keeps the current one, or the pool default for a new asset.
func (l *Ledger) WhitelistToken(caller, asset units.Address, minimum *uint256.Int) error {
	return l.atomic("whitelist_token", func(s *State) error {
		if err := l.requireAdmin(caller, "whitelist token"); err != nil {
			return err
		}
		if asset.IsZero() {
			return fmt.Errorf("%w: asset", ErrInvalidAddress)
		}
		p, ok := s.Assets[asset]
		if !ok {
			p = &AssetPool{Minimum: l.params.DistributionMinimum}
			s.Assets[asset] = p
		}
		p.Whitelisted = true
		if minimum != nil {
			p.Minimum = *minimum
		}
		l.log.Info("asset %s whitelisted, minimum %s", l.fmtAddr(asset), l.fmtAmount(p.Minimum))
		return nil
	})
}

// SetDistributionMinimum changes the smallest inflow of asset that can be distributed.
func (l *Ledger) SetDistributionMinimum(caller, asset units.Address, minimum uint256.Int) error {
	return l.atomic("set_distribution_minimum", func(s *State) error {
		if err := l.requireAdmin(caller, "set distribution minimum"); err != nil {
			return err
		}
		p, ok := s.Assets[asset]
		if !ok || !p.Whitelisted {
			return fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, l.fmtAddr(asset))
		}
		p.Minimum = minimum
		return nil
	})
}

// Deposit pulls amount of asset from from into the pool.
func (l *Ledger) Deposit(ctx context.Context, from, asset units.Address, amount uint256.Int) error {
	return l.exclusive("deposit", func(s *State) error {
		p, ok := s.Assets[asset]
		if !ok || !p.Whitelisted {
			return fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, l.fmtAddr(asset))
		}
		if amount.IsZero() {
			return ErrZeroAmount
		}
		a, err := l.deps.Resolver.Asset(asset)
		if err != nil {
			return err
		}
		if err := a.TransferFrom(ctx, from, l.params.Pool, amount); err != nil {
			return fmt.Errorf("%w: deposit %s from %s: %w", ErrAssetTransferFailed, l.fmtAmount(amount), l.fmtAddr(from), err)
		}
		return nil
	})
}

// Distribute credits every owner with their share of the pool's holdings
// of asset that are not yet owed to anyone, and starts a new epoch.
// The caller must currently hold shares.
func (l *Ledger) Distribute(ctx context.Context, caller, asset units.Address) (*Round, error) {
	var round *Round
	err := l.exclusive("distribute", func(s *State) error {
		p, ok := s.Assets[asset]
		if !ok || !p.Whitelisted {
			return fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, l.fmtAddr(asset))
		}
		if o, ok := s.Owners[caller]; !ok || o.Balance.IsZero() {
			return fmt.Errorf("%w: distribute requires an owner", ErrUnauthorized)
		}
		if s.TotalSupply.IsZero() {
			return ErrNoShares
		}
		a, err := l.deps.Resolver.Asset(asset)
		if err != nil {
			return err
		}
		held, err := a.BalanceOf(ctx, l.params.Pool)
		if err != nil {
			return fmt.Errorf("%w: balance of pool: %w", ErrAssetTransferFailed, err)
		}
		if held.Lt(&p.TotalUnclaimed) {
			return fmt.Errorf("%w: pool holds %s, owes %s",
				ErrInvariantViolation, l.fmtAmount(held), l.fmtAmount(p.TotalUnclaimed))
		}
		var available uint256.Int
		available.Sub(&held, &p.TotalUnclaimed)
		if available.IsZero() {
			return fmt.Errorf("%w: nothing to distribute", ErrZeroAmount)
		}
		if available.Lt(&p.Minimum) {
			return fmt.Errorf("%w: %s available, minimum %s",
				ErrBelowMinimumDistribution, l.fmtAmount(available), l.fmtAmount(p.Minimum))
		}

		dists, err := DistributeRevenue(available, s.entries(), s.TotalSupply)
		if err != nil {
			return err
		}

		p.Epoch++
		round = &Round{Asset: asset, Epoch: p.Epoch, Amount: available}
		for _, d := range dists {
			if d.Amount.IsZero() {
				continue
			}
			c := s.owner(d.Address).claim(asset)
			c.Claimable.Add(&c.Claimable, &d.Amount)
			round.Credits = append(round.Credits, d)
		}
		if _, overflow := p.TotalDeposited.AddOverflow(&p.TotalDeposited, &available); overflow {
			return fmt.Errorf("%w: total distributed", ErrOverflow)
		}
		p.TotalUnclaimed.Add(&p.TotalUnclaimed, &available)

		l.log.Info("distributed %s of %s to %d owners, epoch %d",
			l.fmtAmount(available), l.fmtAddr(asset), len(round.Credits), p.Epoch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return round, nil
}
