package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/urfave/cli"
	"github.com/vocdoni/qf-tally/alloc"
	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/funding"
	"github.com/vocdoni/qf-tally/types"
)

// report summarizes a tally artifact.
type report struct {
	Digest            types.HexBytes          `json:"digest"`
	Depth             uint8                   `json:"voteOptionTreeDepth"`
	Recipients        int                     `json:"recipients"`
	Commitments       *types.TallyCommitments `json:"commitments"`
	TotalSpent        *types.BigInt           `json:"totalSpent"`
	TotalVotesSquares *types.BigInt           `json:"totalVotesSquares"`
}

// allocation is the matching allocation of a single recipient.
type allocation struct {
	Index  int           `json:"index"`
	Tally  *types.BigInt `json:"tally"`
	Spent  *types.BigInt `json:"spent"`
	Amount *types.BigInt `json:"amount"`
}

type allocations struct {
	Alpha       *types.Fraction `json:"alpha"`
	Allocations []allocation    `json:"allocations"`
	Total       *types.BigInt   `json:"total"`
}

func readArtifact(ctx *cli.Context) (*types.TallyArtifact, error) {
	path := ctx.Args().First()
	if path == "" {
		return nil, fmt.Errorf("missing artifact file")
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	a := &types.TallyArtifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	return a, nil
}

func buildReport(a *types.TallyArtifact, depth uint8) (*report, error) {
	digest, err := commitment.ArtifactDigest(a)
	if err != nil {
		return nil, err
	}
	commitments, err := commitment.TallyCommitments(depth, a)
	if err != nil {
		return nil, err
	}
	return &report{
		Digest:            digest,
		Depth:             depth,
		Recipients:        a.Len(),
		Commitments:       commitments,
		TotalSpent:        a.TotalSpentVoiceCredits.Spent.Clone(),
		TotalVotesSquares: types.FromBig(commitment.SumOfSquares(a, a.Len())),
	}, nil
}

func computeAllocations(a *types.TallyArtifact, budget, factor *big.Int) (*allocations, error) {
	alpha, err := alloc.CalcAlpha(budget, commitment.SumOfSquares(a, a.Len()),
		a.TotalSpentVoiceCredits.Spent.MathBigInt(), alloc.AlphaPrecision, factor)
	if err != nil {
		return nil, err
	}
	out := &allocations{
		Alpha: &types.Fraction{
			Numerator:   types.FromBig(alpha),
			Denominator: types.FromBig(alloc.AlphaPrecision),
		},
	}
	total := new(big.Int)
	for i := 0; i < a.Len(); i++ {
		tally, spent := a.Results.Tally[i], a.PerVOSpentVoiceCredits.Tally[i]
		amount, err := alloc.AllocatedAmount(alpha, tally.MathBigInt(), spent.MathBigInt(), alloc.AlphaPrecision, factor)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
		total.Add(total, amount)
		out.Allocations = append(out.Allocations, allocation{
			Index:  i,
			Tally:  tally.Clone(),
			Spent:  spent.Clone(),
			Amount: types.FromBig(amount),
		})
	}
	out.Total = types.FromBig(total)
	return out, nil
}

func parseAmount(name, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func inspectCmd(ctx *cli.Context) error {
	a, err := readArtifact(ctx)
	if err != nil {
		return err
	}
	r, err := buildReport(a, uint8(ctx.Uint(DepthFlag.Name)))
	if err != nil {
		return err
	}
	return printJSON(ctx.App.Writer, r)
}

func proofCmd(ctx *cli.Context) error {
	a, err := readArtifact(ctx)
	if err != nil {
		return err
	}
	req, err := funding.ClaimRequestFromArtifact(context.Background(), a,
		uint8(ctx.Uint(DepthFlag.Name)), uint32(ctx.Uint(IndexFlag.Name)))
	if err != nil {
		return err
	}
	return printJSON(ctx.App.Writer, req)
}

func allocationsCmd(ctx *cli.Context) error {
	a, err := readArtifact(ctx)
	if err != nil {
		return err
	}
	budget, err := parseAmount("budget", ctx.String(BudgetFlag.Name))
	if err != nil {
		return err
	}
	factor, err := parseAmount("voice credit factor", ctx.String(FactorFlag.Name))
	if err != nil {
		return err
	}
	out, err := computeAllocations(a, budget, factor)
	if err != nil {
		return err
	}
	return printJSON(ctx.App.Writer, out)
}
