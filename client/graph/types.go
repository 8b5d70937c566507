// Package graph provides the typed boundary to the social-graph API. Every
// query and mutation the client uses is exposed as a method returning parsed
// structs; untyped response maps never leave this package.
package graph

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// AuthTokens is the pair returned by the authenticate mutation.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ProfileStats carries the counters displayed next to a profile.
type ProfileStats struct {
	TotalFollowers    int `json:"totalFollowers"`
	TotalFollowing    int `json:"totalFollowing"`
	TotalPosts        int `json:"totalPosts"`
	TotalComments     int `json:"totalComments"`
	TotalCollects     int `json:"totalCollects"`
	TotalMirrors      int `json:"totalMirrors"`
	TotalPublications int `json:"totalPublications"`
}

// Profile is an immutable identity snapshot fetched from the API.
type Profile struct {
	ID           string       `json:"id"`
	Handle       string       `json:"handle"`
	Name         string       `json:"name"`
	Bio          string       `json:"bio"`
	OwnedBy      string       `json:"ownedBy"`
	IsDefault    bool         `json:"isDefault"`
	Stats        ProfileStats `json:"stats"`
	FollowModule *struct {
		Type string `json:"type"`
	} `json:"followModule"`
	PictureRef string `json:"-"`
}

// PageInfo is the cursor block returned by paginated queries.
type PageInfo struct {
	Prev       string `json:"prev"`
	Next       string `json:"next"`
	TotalCount int    `json:"totalCount"`
}

// PublicationMetadata is the subset of publication metadata the client reads.
type PublicationMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Attributes  []struct {
		TraitType string `json:"traitType"`
		Value     string `json:"value"`
	} `json:"attributes"`
}

// Publication is a post, comment or mirror as returned by the read queries.
type Publication struct {
	TypeName  string              `json:"__typename"`
	ID        string              `json:"id"`
	Profile   Profile             `json:"profile"`
	Metadata  PublicationMetadata `json:"metadata"`
	CreatedAt time.Time           `json:"createdAt"`
	AppID     string              `json:"appId"`
}

// TypedDataEnvelope is the API's answer to a create*TypedData mutation: a
// single-use EIP-712 payload plus its expiry. The nonce inside Value is
// invalidated by a successful on-chain submission.
type TypedDataEnvelope struct {
	ID          string
	ExpiresAt   time.Time
	PrimaryType string
	Domain      apitypes.TypedDataDomain
	Types       apitypes.Types
	Value       map[string]any
}

// TypedData assembles the signable payload. The API omits the EIP712Domain
// type entry; the hasher requires it, so it is injected here.
func (e *TypedDataEnvelope) TypedData() apitypes.TypedData {
	types := apitypes.Types{}
	for name, fields := range e.Types {
		types[name] = fields
	}
	types["EIP712Domain"] = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	return apitypes.TypedData{
		Types:       types,
		PrimaryType: e.PrimaryType,
		Domain:      e.Domain,
		Message:     e.Value,
	}
}

// MetadataStatus reports the API's validation verdict on publication metadata.
type MetadataStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Metadata status values returned by hasTxHashBeenIndexed.
const (
	MetadataStatusPending          = "PENDING"
	MetadataStatusSuccess          = "SUCCESS"
	MetadataStatusValidationFailed = "METADATA_VALIDATION_FAILED"
)

// TransactionStatus is the union result of hasTxHashBeenIndexed. TypeName
// discriminates between an indexing report and an on-chain error.
type TransactionStatus struct {
	TypeName       string          `json:"__typename"`
	Indexed        bool            `json:"indexed"`
	TxHash         string          `json:"txHash"`
	Reason         string          `json:"reason"`
	MetadataStatus *MetadataStatus `json:"metadataStatus"`
}

// Union member names of the hasTxHashBeenIndexed result.
const (
	TxResultIndexed = "TransactionIndexedResult"
	TxResultError   = "TransactionError"
)

// CollectModuleParams selects the collect module for a new publication.
// The zero value is not valid; use DefaultCollectModule.
type CollectModuleParams struct {
	RevertCollectModule *bool `json:"revertCollectModule,omitempty"`
	FreeCollectModule   *struct {
		FollowerOnly bool `json:"followerOnly"`
	} `json:"freeCollectModule,omitempty"`
}

// ReferenceModuleParams selects the reference module for a new publication.
type ReferenceModuleParams struct {
	FollowerOnlyReferenceModule bool `json:"followerOnlyReferenceModule"`
}

// DefaultCollectModule disables collecting, matching the client's default
// for gated publications.
func DefaultCollectModule() CollectModuleParams {
	revert := true
	return CollectModuleParams{RevertCollectModule: &revert}
}

// DefaultReferenceModule allows anyone to reference the publication.
func DefaultReferenceModule() ReferenceModuleParams {
	return ReferenceModuleParams{FollowerOnlyReferenceModule: false}
}

// PostRequest is the body of createPostTypedData.
type PostRequest struct {
	ProfileID       string                `json:"profileId"`
	ContentURI      string                `json:"contentURI"`
	CollectModule   CollectModuleParams   `json:"collectModule"`
	ReferenceModule ReferenceModuleParams `json:"referenceModule"`
}

// CommentRequest is the body of createCommentTypedData. PublicationID points
// at the publication being commented on.
type CommentRequest struct {
	ProfileID       string                `json:"profileId"`
	PublicationID   string                `json:"publicationId"`
	ContentURI      string                `json:"contentURI"`
	CollectModule   CollectModuleParams   `json:"collectModule"`
	ReferenceModule ReferenceModuleParams `json:"referenceModule"`
}

// FollowTarget pairs a profile with optional follow-module data.
type FollowTarget struct {
	Profile string `json:"profile"`
}

// FollowRequest is the body of createFollowTypedData.
type FollowRequest struct {
	Follow []FollowTarget `json:"follow"`
}

// CollectRequest is the body of createCollectTypedData.
type CollectRequest struct {
	PublicationID string `json:"publicationId"`
}

// PublicationsRequest filters the publications read query.
type PublicationsRequest struct {
	ProfileID        string   `json:"profileId,omitempty"`
	PublicationTypes []string `json:"publicationTypes,omitempty"`
	Limit            int      `json:"limit,omitempty"`
}

// ExploreRequest filters explorePublications. SortCriteria marks the request
// as read-only discovery; the client sends it without an auth header.
type ExploreRequest struct {
	SortCriteria string   `json:"sortCriteria"`
	Sources      []string `json:"sources,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// gqlRequest is the wire form of one GraphQL operation.
type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// gqlResponse is the wire form of a GraphQL reply.
type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}
