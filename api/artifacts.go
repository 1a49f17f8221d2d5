package api

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/registry"
	"github.com/vocdoni/qf-tally/storage"
	"github.com/vocdoni/qf-tally/types"
)

// publishArtifact stores a tally artifact and returns its digest
// POST /artifacts
func (a *API) publishArtifact(w http.ResponseWriter, r *http.Request) {
	artifact := &types.TallyArtifact{}
	if !decodeBody(w, r, artifact) {
		return
	}
	digest, err := a.storage.PublishArtifact(artifact)
	if err != nil {
		ErrInvalidArtifact.WithErr(err).Write(w)
		return
	}
	log.Infow("tally artifact published", "digest", digest.String(), "results", artifact.Len())
	httpWriteJSON(w, &Artifact{Digest: digest})
}

// artifact returns the canonical encoding of a tally artifact, whose
// keccak256 hash is the digest
// GET /artifacts/{digest}
func (a *API) artifact(w http.ResponseWriter, r *http.Request) {
	digest, err := types.HexBytesFromString(chi.URLParam(r, DigestURLParam))
	if err != nil {
		ErrMalformedParam.Withf("invalid digest: %v", err).Write(w)
		return
	}
	data, err := a.storage.ArtifactBytes(digest)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrArtifactNotFound.With(digest.String()).Write(w)
			return
		}
		errorFor(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
}

// setRecipient registers the address of a recipient
// PUT /recipients/{index}
func (a *API) setRecipient(w http.ResponseWriter, r *http.Request) {
	if a.registry == nil {
		ErrRegistryNotAvailable.Write(w)
		return
	}
	index, ok := recipientIndex(w, r)
	if !ok {
		return
	}
	req := &Recipient{}
	if !decodeBody(w, r, req) {
		return
	}
	if req.Address == (common.Address{}) {
		ErrMalformedBody.With("zero recipient address").Write(w)
		return
	}
	if err := a.registry.Add(index, req.Address); err != nil {
		errorFor(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// removeRecipient deregisters a recipient
// DELETE /recipients/{index}
func (a *API) removeRecipient(w http.ResponseWriter, r *http.Request) {
	if a.registry == nil {
		ErrRegistryNotAvailable.Write(w)
		return
	}
	index, ok := recipientIndex(w, r)
	if !ok {
		return
	}
	if err := a.registry.Remove(index); err != nil {
		if errors.Is(err, registry.ErrNotRegistered) {
			ErrRecipientNotFound.Withf("index %d", index).Write(w)
			return
		}
		errorFor(err).Write(w)
		return
	}
	httpWriteOK(w)
}
