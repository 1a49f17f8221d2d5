// Package alloc computes the matching-funds blending coefficient and the
// amount allocated to each recipient. All arithmetic is exact unsigned
// 256-bit integer arithmetic with truncating division.
package alloc

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrInvalidBudget               = errors.New("invalid budget")
	ErrNoProjectHasMoreThanOneVote = errors.New("no project has more than one vote")
	ErrOverflow                    = errors.New("value overflows 256 bits")
	ErrInvalidInput                = errors.New("invalid allocation input")
)

// AlphaPrecision is the fixed-point denominator of alpha.
var AlphaPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// toU256 converts a big integer, rejecting nil, negative and oversized values.
func toU256(name string, x *big.Int) (*uint256.Int, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidInput, name)
	}
	if x.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative %s", ErrInvalidInput, name)
	}
	v, overflow := uint256.FromBig(x)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, name)
	}
	return v, nil
}

func mul(name string, x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, name)
	}
	return z, nil
}

// CalcAlpha returns alpha scaled by precision:
//
//	((budget - totalSpent*F) * precision) / ((totalVotesSquares - totalSpent) * F)
//
// The result is capped at precision, so 0 <= alpha <= precision. When the
// budget exceeds what full quadratic matching needs, every recipient gets
// exactly its quadratic amount tally²·F and the surplus stays unallocated.
func CalcAlpha(budget, totalVotesSquares, totalSpent, precision, voiceCreditFactor *big.Int) (*big.Int, error) {
	b, err := toU256("budget", budget)
	if err != nil {
		return nil, err
	}
	sq, err := toU256("totalVotesSquares", totalVotesSquares)
	if err != nil {
		return nil, err
	}
	spent, err := toU256("totalSpent", totalSpent)
	if err != nil {
		return nil, err
	}
	p, err := toU256("precision", precision)
	if err != nil {
		return nil, err
	}
	f, err := toU256("voiceCreditFactor", voiceCreditFactor)
	if err != nil {
		return nil, err
	}
	if f.IsZero() || p.IsZero() {
		return nil, fmt.Errorf("%w: zero voice credit factor or precision", ErrInvalidInput)
	}

	contributions, err := mul("totalSpent*voiceCreditFactor", spent, f)
	if err != nil {
		return nil, err
	}
	if b.Lt(contributions) {
		return nil, fmt.Errorf("%w: budget %s < %s", ErrInvalidBudget, b.Dec(), contributions.Dec())
	}
	if !sq.Gt(spent) {
		return nil, ErrNoProjectHasMoreThanOneVote
	}

	num, err := mul("numerator", new(uint256.Int).Sub(b, contributions), p)
	if err != nil {
		return nil, err
	}
	den, err := mul("denominator", new(uint256.Int).Sub(sq, spent), f)
	if err != nil {
		return nil, err
	}
	alpha := new(uint256.Int).Div(num, den)
	if alpha.Gt(p) {
		alpha.Set(p)
	}
	return alpha.ToBig(), nil
}

// AllocatedAmount returns the amount allocated to a recipient:
//
//	(alpha*F*tally^2 + (precision-alpha)*F*spent) / precision
func AllocatedAmount(alpha, tally, spent, precision, voiceCreditFactor *big.Int) (*big.Int, error) {
	a, err := toU256("alpha", alpha)
	if err != nil {
		return nil, err
	}
	t, err := toU256("tally", tally)
	if err != nil {
		return nil, err
	}
	s, err := toU256("spent", spent)
	if err != nil {
		return nil, err
	}
	p, err := toU256("precision", precision)
	if err != nil {
		return nil, err
	}
	f, err := toU256("voiceCreditFactor", voiceCreditFactor)
	if err != nil {
		return nil, err
	}
	if p.IsZero() {
		return nil, fmt.Errorf("%w: zero precision", ErrInvalidInput)
	}
	if a.Gt(p) {
		return nil, fmt.Errorf("%w: alpha %s exceeds precision %s", ErrInvalidInput, a.Dec(), p.Dec())
	}

	quadratic, err := mul("tally^2", t, t)
	if err != nil {
		return nil, err
	}
	if quadratic, err = mul("voiceCreditFactor*tally^2", quadratic, f); err != nil {
		return nil, err
	}
	if quadratic, err = mul("alpha*voiceCreditFactor*tally^2", quadratic, a); err != nil {
		return nil, err
	}
	linear, err := mul("voiceCreditFactor*spent", s, f)
	if err != nil {
		return nil, err
	}
	if linear, err = mul("(precision-alpha)*voiceCreditFactor*spent", linear, new(uint256.Int).Sub(p, a)); err != nil {
		return nil, err
	}
	sum, overflow := new(uint256.Int).AddOverflow(quadratic, linear)
	if overflow {
		return nil, fmt.Errorf("%w: allocation sum", ErrOverflow)
	}
	return new(uint256.Int).Div(sum, p).ToBig(), nil
}
