package wrapped

import "math/big"

// Index values are unsigned fixed-point scalars carrying twelve decimals of
// precision. An index of oneScaled means principal and present value coincide.
var oneScaled = big.NewInt(1_000_000_000_000)

// OneScaled returns the fixed-point representation of an index of exactly one.
func OneScaled() *big.Int {
	return new(big.Int).Set(oneScaled)
}

// PresentAmount projects a principal amount through an index, rounding down.
func PresentAmount(principal, index *big.Int) (*big.Int, error) {
	return presentAmount(principal, index)
}

// PrincipalRoundedDown converts a present-value credit into principal,
// rounding down.
func PrincipalRoundedDown(present, index *big.Int) (*big.Int, error) {
	return principalAmountRoundedDown(present, index)
}

// PrincipalRoundedUp converts a present-value debit into principal, rounding
// up.
func PrincipalRoundedUp(present, index *big.Int) (*big.Int, error) {
	return principalAmountRoundedUp(present, index)
}

// presentAmount projects a principal amount through an index, rounding down so
// the ledger never over-reports a live balance.
func presentAmount(principal, index *big.Int) (*big.Int, error) {
	if index == nil || index.Sign() == 0 {
		return nil, ErrZeroIndex
	}
	if principal == nil || principal.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	out := new(big.Int).Mul(principal, index)
	return out.Quo(out, oneScaled), nil
}

// principalAmountRoundedDown converts a present-value credit into principal,
// rounding down so a deposit never mints more principal than it justifies.
func principalAmountRoundedDown(present, index *big.Int) (*big.Int, error) {
	if index == nil || index.Sign() == 0 {
		return nil, ErrZeroIndex
	}
	if present == nil || present.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	out := new(big.Int).Mul(present, oneScaled)
	return out.Quo(out, index), nil
}

// principalAmountRoundedUp converts a present-value debit into principal,
// rounding up so a withdrawal never leaves more principal behind than the
// account is entitled to.
func principalAmountRoundedUp(present, index *big.Int) (*big.Int, error) {
	if index == nil || index.Sign() == 0 {
		return nil, ErrZeroIndex
	}
	if present == nil || present.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	out := new(big.Int).Mul(present, oneScaled)
	out.Add(out, new(big.Int).Sub(index, big.NewInt(1)))
	return out.Quo(out, index), nil
}
