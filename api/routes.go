package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint exposes the prometheus metrics
	MetricsEndpoint = "/metrics"

	RoundURLParam = "roundId"
	IndexURLParam = "index"

	// RoundsEndpoint creates and lists rounds
	RoundsEndpoint = "/rounds"
	// RoundEndpoint returns the state of a round
	RoundEndpoint = "/rounds/{" + RoundURLParam + "}"
	// ContributionsEndpoint records a contribution to an open round
	ContributionsEndpoint = RoundEndpoint + "/contributions"
	// MatchingEndpoint adds funds to the matching pool
	MatchingEndpoint = RoundEndpoint + "/matching"
	// VotingEndpoint publishes the vote-processing engine commitments
	VotingEndpoint = RoundEndpoint + "/voting"
	// TallyHashEndpoint publishes the tally artifact digest
	TallyHashEndpoint = RoundEndpoint + "/tallyhash"
	// BatchesEndpoint verifies a batch of tally results
	BatchesEndpoint = RoundEndpoint + "/batches"
	// FinalizeEndpoint finalizes a round
	FinalizeEndpoint = RoundEndpoint + "/finalize"
	// CancelEndpoint cancels a round
	CancelEndpoint = RoundEndpoint + "/cancel"
	// ClaimsEndpoint claims the allocation of a recipient
	ClaimsEndpoint = RoundEndpoint + "/claims"
	// ClaimEndpoint returns a claim record and its payout receipt
	ClaimEndpoint = ClaimsEndpoint + "/{" + IndexURLParam + "}"
	// ClaimProofEndpoint returns the claims ledger proof of a claim
	ClaimProofEndpoint = ClaimEndpoint + "/proof"
	// ProofsEndpoint builds the claim request of a recipient from the
	// published tally artifact
	ProofsEndpoint = RoundEndpoint + "/proofs/{" + IndexURLParam + "}"

	DigestURLParam = "digest"
	// ArtifactsEndpoint publishes a tally artifact
	ArtifactsEndpoint = "/artifacts"
	// ArtifactEndpoint returns the canonical encoding of a tally artifact
	ArtifactEndpoint = ArtifactsEndpoint + "/{" + DigestURLParam + "}"

	// RecipientEndpoint adds or removes a recipient of the local registry
	RecipientEndpoint = "/recipients/{" + IndexURLParam + "}"
)
