package main

import (
	"fmt"

	"github.com/urfave/cli"
	"github.com/vocdoni/qf-tally/alloc"
	"github.com/vocdoni/qf-tally/api/client"
	"github.com/vocdoni/qf-tally/commitment"
	"github.com/vocdoni/qf-tally/types"
)

type check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// auditRound checks the state a node reports for a round against the
// artifact addressed by its tally hash. Checks that do not apply to the
// round status yet are skipped.
func auditRound(r *types.Round, a *types.TallyArtifact) ([]check, error) {
	var checks []check
	add := func(name string, ok bool, format string, args ...any) {
		chk := check{Name: name, OK: ok}
		if !ok {
			chk.Detail = fmt.Sprintf(format, args...)
		}
		checks = append(checks, chk)
	}

	digest, err := commitment.ArtifactDigest(a)
	if err != nil {
		return nil, err
	}
	add("tally hash", digest.Equal(r.TallyHash), "artifact digest %s, tally hash %s", digest, r.TallyHash)
	add("recipients", a.Len() >= int(r.RecipientCount), "%d results for %d recipients", a.Len(), r.RecipientCount)

	if r.Commitments != nil {
		got, err := commitment.TallyCommitments(r.VoteOptionDepth, a)
		if err != nil {
			return nil, err
		}
		add("results commitment", got.Results.Equal(r.Commitments.Results), "got %s", got.Results)
		add("spent commitment", got.PerRecipientSpent.Equal(r.Commitments.PerRecipientSpent),
			"got %s", got.PerRecipientSpent)
		add("total spent commitment", got.TotalSpent.Equal(r.Commitments.TotalSpent), "got %s", got.TotalSpent)
	}

	verified := types.FromBig(commitment.SumOfSquares(a, int(r.TotalTallyResults)))
	add("votes squares", verified.Equal(r.TotalVotesSquares),
		"%d verified results sum %s, round reports %s", r.TotalTallyResults, verified, r.TotalVotesSquares)

	if p := r.Allocation; p != nil && p.Alpha != nil {
		alpha, err := alloc.CalcAlpha(p.Budget.MathBigInt(), p.TotalVotesSquares.MathBigInt(),
			p.TotalSpent.MathBigInt(), p.Alpha.Denominator.MathBigInt(), r.VoiceCreditFactor.MathBigInt())
		if err != nil {
			add("alpha", false, "%v", err)
		} else {
			add("alpha", types.FromBig(alpha).Equal(p.Alpha.Numerator), "got %s, round reports %s",
				alpha, p.Alpha.Numerator)
		}
		add("total spent", p.TotalSpent.Equal(a.TotalSpentVoiceCredits.Spent),
			"artifact %s, round %s", a.TotalSpentVoiceCredits.Spent, p.TotalSpent)
	}
	return checks, nil
}

func auditCmd(ctx *cli.Context) error {
	id, err := types.ParseRoundID(ctx.String(RoundFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid round ID: %w", err)
	}
	c, err := client.New(ctx.String(URLFlag.Name))
	if err != nil {
		return err
	}
	r, err := c.Round(id)
	if err != nil {
		return err
	}
	if len(r.TallyHash) == 0 {
		return fmt.Errorf("round %s has no tally hash published", id)
	}
	a, err := c.Artifact(r.TallyHash)
	if err != nil {
		return err
	}
	checks, err := auditRound(r, a)
	if err != nil {
		return err
	}
	if err := printJSON(ctx.App.Writer, checks); err != nil {
		return err
	}
	for _, chk := range checks {
		if !chk.OK {
			return fmt.Errorf("round %s failed the %s check", id, chk.Name)
		}
	}
	return nil
}
