package revshare

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/bitfsorg/poolshares-go/units"
)

// ValidateShareConservation checks that entries hold exactly totalShares.
func ValidateShareConservation(entries []RevShareEntry, totalShares uint256.Int) error {
	var total uint256.Int
	for _, e := range entries {
		if _, overflow := total.AddOverflow(&total, &e.Share); overflow {
			return fmt.Errorf("%w: share sum overflows", ErrInvariantViolation)
		}
	}
	if !total.Eq(&totalShares) {
		return fmt.Errorf("%w: entries hold %s, supply %s", ErrInvariantViolation, total.Dec(), totalShares.Dec())
	}
	return nil
}

// ValidateDistribution checks that distribution amounts match registry proportions.
func ValidateDistribution(distributions []Distribution, entries []RevShareEntry, total, totalShares uint256.Int) error {
	if len(distributions) != len(entries) {
		return fmt.Errorf("%w: distribution count %d != entry count %d",
			ErrInvariantViolation, len(distributions), len(entries))
	}

	expected, err := DistributeRevenue(total, entries, totalShares)
	if err != nil {
		return err
	}

	var sum uint256.Int
	for i := range distributions {
		if distributions[i].Address != expected[i].Address {
			return fmt.Errorf("%w: entry %d: address mismatch", ErrInvariantViolation, i)
		}
		if !distributions[i].Amount.Eq(&expected[i].Amount) {
			return fmt.Errorf("%w: entry %d: amount %s != expected %s",
				ErrInvariantViolation, i, distributions[i].Amount.Dec(), expected[i].Amount.Dec())
		}
		sum.Add(&sum, &distributions[i].Amount)
	}
	if !sum.Eq(&total) {
		return fmt.Errorf("%w: distributed %s of %s", ErrInvariantViolation, sum.Dec(), total.Dec())
	}
	return nil
}

// validate checks every ledger invariant against params.
func (s *State) validate(params *Params) error {
	if s.Phase > PhaseLocked {
		return fmt.Errorf("%w: phase %d", ErrInvariantViolation, s.Phase)
	}
	if err := ValidateShareConservation(s.entries(), s.TotalSupply); err != nil {
		return err
	}
	if s.TotalContributed.Gt(&params.HardCap) {
		return fmt.Errorf("%w: contributed %s above cap %s",
			ErrInvariantViolation, s.TotalContributed.Dec(), params.HardCap.Dec())
	}
	if !params.MaxSupply.IsZero() && s.TotalSupply.Gt(&params.MaxSupply) {
		return fmt.Errorf("%w: supply %s above max %s",
			ErrInvariantViolation, s.TotalSupply.Dec(), params.MaxSupply.Dec())
	}

	for i, addr := range s.Registry {
		if idx, ok := s.Registered[addr]; !ok || idx != uint64(i) {
			return fmt.Errorf("%w: registry entry %d not indexed", ErrInvariantViolation, i)
		}
	}
	if len(s.Registered) != len(s.Registry) {
		return fmt.Errorf("%w: %d indexed, %d registered", ErrInvariantViolation, len(s.Registered), len(s.Registry))
	}

	var holders uint64
	unclaimed := make(map[units.Address]*uint256.Int)
	for addr, o := range s.Owners {
		if !o.Balance.IsZero() {
			holders++
			if _, ok := s.Registered[addr]; !ok {
				return fmt.Errorf("%w: holder %s not registered", ErrInvariantViolation, addr)
			}
		}
		var staked uint256.Int
		for _, v := range o.Stakes {
			staked.Add(&staked, &v)
		}
		if !staked.Eq(&o.Staked) {
			return fmt.Errorf("%w: %s stakes sum to %s, staked %s",
				ErrInvariantViolation, addr, staked.Dec(), o.Staked.Dec())
		}
		if o.Staked.Gt(&o.Balance) {
			return fmt.Errorf("%w: %s staked %s above balance %s",
				ErrInvariantViolation, addr, o.Staked.Dec(), o.Balance.Dec())
		}
		for asset, c := range o.Claims {
			u, ok := unclaimed[asset]
			if !ok {
				u = new(uint256.Int)
				unclaimed[asset] = u
			}
			u.Add(u, &c.Claimable)
		}
	}
	if holders != s.CurrentHolders {
		return fmt.Errorf("%w: %d holders, counted %d", ErrInvariantViolation, holders, s.CurrentHolders)
	}

	for asset, p := range s.Assets {
		var owed uint256.Int
		if u, ok := unclaimed[asset]; ok {
			owed = *u
		}
		if !owed.Eq(&p.TotalUnclaimed) {
			return fmt.Errorf("%w: %s owed %s, unclaimed %s",
				ErrInvariantViolation, asset, owed.Dec(), p.TotalUnclaimed.Dec())
		}
		if p.TotalUnclaimed.Gt(&p.TotalDeposited) {
			return fmt.Errorf("%w: %s unclaimed above distributed", ErrInvariantViolation, asset)
		}
	}
	for asset, u := range unclaimed {
		if _, ok := s.Assets[asset]; !ok && !u.IsZero() {
			return fmt.Errorf("%w: claims on unknown asset %s", ErrInvariantViolation, asset)
		}
	}
	return nil
}
