package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the sequencer API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Process endpoints
	ProcessURLParam   = "processId"                            // URL parameter for process ID
	AddressURLParam   = "address"                              // URL parameter for address
	ProcessesEndpoint = "/processes"                           // GET: List processes, POST: Create process
	ProcessEndpoint   = "/processes/{" + ProcessURLParam + "}" // GET: Get process info

	// Vote endpoints
	VotesEndpoint = "/votes" // POST: Submit a vote

	// Vote status endpoints
	VoteIDURLParam        = "voteId"                                                                       // URL parameter for vote ID
	VoteStatusEndpoint    = VotesEndpoint + "/{" + ProcessURLParam + "}/voteId/{" + VoteIDURLParam + "}"   // GET: Check vote status
	VoteByAddressEndpoint = VotesEndpoint + "/{" + ProcessURLParam + "}/address/{" + AddressURLParam + "}" // GET: Get vote by address

	// Info endpoint
	InfoEndpoint = "/info" // GET: Get ballot proof information

	// Census endpoints
	CensusURLParam                = "censusId"                                            // URL parameter for census ID or root
	NewCensusEndpoint             = "/censuses"                                           // POST: Create a new census
	AddCensusParticipantsEndpoint = "/censuses/{" + CensusURLParam + "}/participants"     // POST: Add participants
	GetCensusRootEndpoint         = "/censuses/{" + CensusURLParam + "}/root"             // GET: Get census root
	GetCensusSizeEndpoint         = "/censuses/{" + CensusURLParam + "}/size"             // GET: Get census size
	GetCensusProofEndpoint        = "/censuses/{" + CensusURLParam + "}/proof"            // GET: Get proof for a key
	DeleteCensusEndpoint          = "/censuses/{" + CensusURLParam + "}"                  // DELETE: Delete census

	// Metadata endpoints
	MetadataHashParam   = "metadataHash"                                       // URL parameter for metadata hash
	MetadataSetEndpoint = "/metadata"                                          // POST: Set metadata
	MetadataGetEndpoint = MetadataSetEndpoint + "/{" + MetadataHashParam + "}" // GET: Get metadata
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}
