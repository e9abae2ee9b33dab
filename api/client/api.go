package client

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/davinci-sdk/api"
	"github.com/vocdoni/davinci-sdk/types"
)

// Typed helpers over Request for every sequencer endpoint the SDK uses.
// They decode the response body and turn non-2xx responses into api.Error.

// decode unmarshals a successful response body into T, or returns the api
// error the body carries.
func decode[T any](body []byte, status int) (*T, error) {
	if status != http.StatusOK {
		apiErr := api.ErrorFromResponse(status, body)
		return nil, apiErr
	}
	out := new(T)
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// Ping checks the sequencer is reachable.
func (c *HTTPclient) Ping(ctx context.Context) error {
	_, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, api.PingEndpoint)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d", errCodeNot200, status)
	}
	return nil
}

// Info fetches the sequencer info: circuit artifact URLs and hashes, contract
// addresses and supported networks.
func (c *HTTPclient) Info(ctx context.Context) (*api.SequencerInfo, error) {
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, api.InfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sequencer info: %w", err)
	}
	return decode[api.SequencerInfo](body, status)
}

// Process fetches a process by ID.
func (c *HTTPclient) Process(ctx context.Context, pid types.HexBytes) (*types.Process, error) {
	endpoint := api.EndpointWithParam(api.ProcessEndpoint, api.ProcessURLParam, pid.String())
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch process: %w", err)
	}
	return decode[types.Process](body, status)
}

// ProcessList fetches the list of known process IDs.
func (c *HTTPclient) ProcessList(ctx context.Context) (*api.ProcessList, error) {
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, api.ProcessesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch process list: %w", err)
	}
	return decode[api.ProcessList](body, status)
}

// Metadata fetches process metadata by its content hash. Since metadata is
// content-addressed, results are cached in memory.
func (c *HTTPclient) Metadata(ctx context.Context, hash types.HexBytes) (*types.Metadata, error) {
	if cached, ok := c.metadataCache.Get(hash.Hex()); ok {
		return cached, nil
	}
	endpoint := api.EndpointWithParam(api.MetadataGetEndpoint, api.MetadataHashParam, hash.Hex())
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	metadata, err := decode[types.Metadata](body, status)
	if err != nil {
		return nil, err
	}
	c.metadataCache.Add(hash.Hex(), metadata)
	return metadata, nil
}

// SetMetadata pushes process metadata to the sequencer and returns its hash.
func (c *HTTPclient) SetMetadata(ctx context.Context, metadata *types.Metadata) (types.HexBytes, error) {
	body, status, err := c.RequestContext(ctx, HTTPPOST, metadata, nil, api.MetadataSetEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set metadata: %w", err)
	}
	resp, err := decode[api.SetMetadataResponse](body, status)
	if err != nil {
		return nil, err
	}
	return resp.Hash, nil
}

// NewCensus asks the sequencer to create a new working census and returns its
// identifier.
func (c *HTTPclient) NewCensus(ctx context.Context) (*api.NewCensus, error) {
	body, status, err := c.RequestContext(ctx, HTTPPOST, nil, nil, api.NewCensusEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create census: %w", err)
	}
	return decode[api.NewCensus](body, status)
}

// AddCensusParticipants adds participants to a census identified by censusID.
func (c *HTTPclient) AddCensusParticipants(ctx context.Context, censusID string, participants *api.CensusParticipants) error {
	endpoint := api.EndpointWithParam(api.AddCensusParticipantsEndpoint, api.CensusURLParam, censusID)
	body, status, err := c.RequestContext(ctx, HTTPPOST, participants, nil, endpoint)
	if err != nil {
		return fmt.Errorf("failed to add census participants: %w", err)
	}
	if status != http.StatusOK {
		return api.ErrorFromResponse(status, body)
	}
	return nil
}

// CensusRoot fetches the merkle root of a census.
func (c *HTTPclient) CensusRoot(ctx context.Context, censusID string) (types.HexBytes, error) {
	endpoint := api.EndpointWithParam(api.GetCensusRootEndpoint, api.CensusURLParam, censusID)
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch census root: %w", err)
	}
	resp, err := decode[api.CensusRoot](body, status)
	if err != nil {
		return nil, err
	}
	return resp.Root, nil
}

// CensusProof fetches the proof of inclusion of key in the census identified
// by its root.
func (c *HTTPclient) CensusProof(ctx context.Context, root, key types.HexBytes) (*types.CensusProof, error) {
	endpoint := api.EndpointWithParam(api.GetCensusProofEndpoint, api.CensusURLParam, hex.EncodeToString(root))
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, []string{"key", hex.EncodeToString(key)}, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch census proof: %w", err)
	}
	return decode[types.CensusProof](body, status)
}

// SubmitVote submits a ballot to the sequencer and returns the vote ID that
// tracks it.
func (c *HTTPclient) SubmitVote(ctx context.Context, vote *api.Vote) (types.HexBytes, error) {
	body, status, err := c.RequestContext(ctx, HTTPPOST, vote, nil, api.VotesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to submit vote: %w", err)
	}
	resp, err := decode[api.VoteResponse](body, status)
	if err != nil {
		return nil, err
	}
	return resp.VoteID, nil
}

// VoteStatus fetches the current status of a vote in a process.
func (c *HTTPclient) VoteStatus(ctx context.Context, pid, voteID types.HexBytes) (string, error) {
	endpoint := api.EndpointWithParam(api.VoteStatusEndpoint, api.ProcessURLParam, pid.String())
	endpoint = api.EndpointWithParam(endpoint, api.VoteIDURLParam, voteID.String())
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to fetch vote status: %w", err)
	}
	resp, err := decode[api.VoteStatusResponse](body, status)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// VoteByAddress fetches the vote cast by an address in a process, if any.
func (c *HTTPclient) VoteByAddress(ctx context.Context, pid, address types.HexBytes) (*api.VoteResponse, error) {
	endpoint := api.EndpointWithParam(api.VoteByAddressEndpoint, api.ProcessURLParam, pid.String())
	endpoint = api.EndpointWithParam(endpoint, api.AddressURLParam, address.String())
	body, status, err := c.RequestContext(ctx, HTTPGET, nil, nil, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vote by address: %w", err)
	}
	return decode[api.VoteResponse](body, status)
}

// HasAddressVoted reports whether the address already cast a vote in the
// process. A not-found response means it has not.
func (c *HTTPclient) HasAddressVoted(ctx context.Context, pid, address types.HexBytes) (bool, error) {
	_, err := c.VoteByAddress(ctx, pid, address)
	if err != nil {
		var apiErr api.Error
		if errors.As(err, &apiErr) && apiErr.HTTPstatus == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
