package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TokenSource supplies the current access token for authenticated operations.
type TokenSource interface {
	AccessToken() (string, bool)
}

// API is the full social-graph capability consumed by the rest of the client.
type API interface {
	Challenge(ctx context.Context, address string) (string, error)
	Authenticate(ctx context.Context, address, signature string) (AuthTokens, error)
	Verify(ctx context.Context, accessToken string) (bool, error)
	Refresh(ctx context.Context, refreshToken string) (AuthTokens, error)

	Profiles(ctx context.Context, ownedBy []string) ([]Profile, error)
	ProfileIDByHandle(ctx context.Context, handle string) (string, error)

	CreatePostTypedData(ctx context.Context, req PostRequest) (*TypedDataEnvelope, error)
	CreateCommentTypedData(ctx context.Context, req CommentRequest) (*TypedDataEnvelope, error)
	CreateFollowTypedData(ctx context.Context, req FollowRequest) (*TypedDataEnvelope, error)
	CreateCollectTypedData(ctx context.Context, req CollectRequest) (*TypedDataEnvelope, error)

	Publication(ctx context.Context, id string) (*Publication, error)
	Publications(ctx context.Context, req PublicationsRequest) ([]Publication, error)
	ExplorePublications(ctx context.Context, req ExploreRequest) ([]Publication, error)

	HasTxHashBeenIndexed(ctx context.Context, txHash string) (*TransactionStatus, error)
}

// Client speaks GraphQL over HTTP to the social-graph endpoint. It performs
// no response caching; indexing and verification answers are always fresh.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   TokenSource
	logger   log.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets the source of the session access token.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the client logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a graph API client for the given GraphQL endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// execute posts one GraphQL operation and unmarshals the data payload into
// out. The session token rides along as a bearer header on every operation
// except read-only discovery requests, recognized by a sortCriteria field in
// the request variables.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil && !isDiscoveryRequest(variables) {
		if token, ok := c.tokens.AccessToken(); ok {
			req.Header.Set("x-access-token", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph API returned status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var gr gqlResponse
	if err := dec.Decode(&gr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		c.logger.Debug("graph API returned errors", "errors", msgs)
		return fmt.Errorf("graph API error: %s", strings.Join(msgs, "; "))
	}

	if out != nil {
		dataDec := json.NewDecoder(bytes.NewReader(gr.Data))
		dataDec.UseNumber()
		if err := dataDec.Decode(out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}

	return nil
}

// isDiscoveryRequest reports whether the request variables carry a
// sortCriteria, the marker of an unauthenticated listing query.
func isDiscoveryRequest(variables map[string]any) bool {
	req, ok := variables["request"].(map[string]any)
	if !ok {
		return false
	}
	_, has := req["sortCriteria"]
	return has
}

// asVariables marshals a typed request struct into the generic variables map
// the GraphQL transport expects.
func asVariables(req any) (map[string]any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return map[string]any{"request": m}, nil
}

// Challenge requests the login challenge text bound to address.
func (c *Client) Challenge(ctx context.Context, address string) (string, error) {
	var out struct {
		Challenge struct {
			Text string `json:"text"`
		} `json:"challenge"`
	}

	vars := map[string]any{"request": map[string]any{"address": address}}
	if err := c.execute(ctx, challengeQuery, vars, &out); err != nil {
		return "", err
	}
	return out.Challenge.Text, nil
}

// Authenticate exchanges the signed challenge for a token pair.
func (c *Client) Authenticate(ctx context.Context, address, signature string) (AuthTokens, error) {
	var out struct {
		Authenticate AuthTokens `json:"authenticate"`
	}

	vars := map[string]any{"request": map[string]any{
		"address":   address,
		"signature": signature,
	}}
	if err := c.execute(ctx, authenticateMutation, vars, &out); err != nil {
		return AuthTokens{}, err
	}
	return out.Authenticate, nil
}

// Verify asks the API whether the access token is still valid.
func (c *Client) Verify(ctx context.Context, accessToken string) (bool, error) {
	var out struct {
		Verify bool `json:"verify"`
	}

	vars := map[string]any{"request": map[string]any{"accessToken": accessToken}}
	if err := c.execute(ctx, verifyQuery, vars, &out); err != nil {
		return false, err
	}
	return out.Verify, nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	var out struct {
		Refresh AuthTokens `json:"refresh"`
	}

	vars := map[string]any{"request": map[string]any{"refreshToken": refreshToken}}
	if err := c.execute(ctx, refreshMutation, vars, &out); err != nil {
		return AuthTokens{}, err
	}
	return out.Refresh, nil
}

// Profiles lists the profiles owned by the given addresses.
func (c *Client) Profiles(ctx context.Context, ownedBy []string) ([]Profile, error) {
	var out struct {
		Profiles struct {
			Items []json.RawMessage `json:"items"`
			// pageInfo ignored; the client loads the full owned set
		} `json:"profiles"`
	}

	vars := map[string]any{"request": map[string]any{"ownedBy": ownedBy}}
	if err := c.execute(ctx, profilesQuery, vars, &out); err != nil {
		return nil, err
	}

	items := make([]Profile, 0, len(out.Profiles.Items))
	for _, raw := range out.Profiles.Items {
		p, err := decodeProfile(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

// decodeProfile parses one profile item, flattening the picture union into
// PictureRef.
func decodeProfile(raw json.RawMessage) (Profile, error) {
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}

	var pic struct {
		Picture struct {
			URI      string `json:"uri"`
			Original struct {
				URL string `json:"url"`
			} `json:"original"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(raw, &pic); err == nil {
		if pic.Picture.URI != "" {
			p.PictureRef = pic.Picture.URI
		} else {
			p.PictureRef = pic.Picture.Original.URL
		}
	}

	return p, nil
}

// ProfileIDByHandle resolves a handle to its on-chain profile id. Returns an
// empty id when the handle is unknown; the caller decides whether that is an
// error.
func (c *Client) ProfileIDByHandle(ctx context.Context, handle string) (string, error) {
	var out struct {
		Profile *struct {
			ID string `json:"id"`
		} `json:"profile"`
	}

	vars := map[string]any{"request": map[string]any{"handle": handle}}
	if err := c.execute(ctx, profileByHandleQuery, vars, &out); err != nil {
		return "", err
	}
	if out.Profile == nil {
		return "", nil
	}
	return out.Profile.ID, nil
}

// typedDataResult is the raw shape shared by all create*TypedData mutations.
type typedDataResult struct {
	ID        string          `json:"id"`
	ExpiresAt time.Time       `json:"expiresAt"`
	TypedData json.RawMessage `json:"typedData"`
}

func (c *Client) createTypedData(ctx context.Context, mutation, field string, req any) (*TypedDataEnvelope, error) {
	vars, err := asVariables(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var out map[string]json.RawMessage
	if err := c.execute(ctx, mutation, vars, &out); err != nil {
		return nil, err
	}

	raw, ok := out[field]
	if !ok {
		return nil, fmt.Errorf("response missing %s", field)
	}

	var res typedDataResult
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode typed-data result: %w", err)
	}

	return decodeEnvelope(res)
}

// CreatePostTypedData requests a signable post envelope.
func (c *Client) CreatePostTypedData(ctx context.Context, req PostRequest) (*TypedDataEnvelope, error) {
	return c.createTypedData(ctx, createPostTypedDataMutation, "createPostTypedData", req)
}

// CreateCommentTypedData requests a signable comment envelope.
func (c *Client) CreateCommentTypedData(ctx context.Context, req CommentRequest) (*TypedDataEnvelope, error) {
	return c.createTypedData(ctx, createCommentTypedDataMutation, "createCommentTypedData", req)
}

// CreateFollowTypedData requests a signable follow envelope.
func (c *Client) CreateFollowTypedData(ctx context.Context, req FollowRequest) (*TypedDataEnvelope, error) {
	return c.createTypedData(ctx, createFollowTypedDataMutation, "createFollowTypedData", req)
}

// CreateCollectTypedData requests a signable collect envelope.
func (c *Client) CreateCollectTypedData(ctx context.Context, req CollectRequest) (*TypedDataEnvelope, error) {
	return c.createTypedData(ctx, createCollectTypedDataMutation, "createCollectTypedData", req)
}

// decodeEnvelope turns the raw typedData payload into a signable envelope.
// Protocol tag fields are stripped so the signature covers exactly the fields
// the on-chain verifier expects.
func decodeEnvelope(res typedDataResult) (*TypedDataEnvelope, error) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(res.TypedData))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode typed data: %w", err)
	}

	stripTags(payload)

	typesRaw, err := json.Marshal(payload["types"])
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode types: %w", err)
	}
	var types apitypes.Types
	if err := json.Unmarshal(typesRaw, &types); err != nil {
		return nil, fmt.Errorf("failed to parse types: %w", err)
	}

	domainRaw, err := json.Marshal(payload["domain"])
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode domain: %w", err)
	}
	var domain apitypes.TypedDataDomain
	if err := json.Unmarshal(domainRaw, &domain); err != nil {
		return nil, fmt.Errorf("failed to parse domain: %w", err)
	}

	value, ok := payload["value"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("typed data missing value object")
	}
	normalizeValues(value)

	primary := ""
	for name := range types {
		if name != "EIP712Domain" {
			primary = name
			break
		}
	}
	if primary == "" {
		return nil, fmt.Errorf("typed data missing primary type")
	}

	return &TypedDataEnvelope{
		ID:          res.ID,
		ExpiresAt:   res.ExpiresAt,
		PrimaryType: primary,
		Domain:      domain,
		Types:       types,
		Value:       value,
	}, nil
}

// stripTags removes __typename markers recursively. They are GraphQL
// transport artifacts and must not enter the signed payload.
func stripTags(v any) {
	switch node := v.(type) {
	case map[string]any:
		delete(node, "__typename")
		for _, child := range node {
			stripTags(child)
		}
	case []any:
		for _, child := range node {
			stripTags(child)
		}
	}
}

// normalizeValues rewrites JSON numbers as decimal strings so the EIP-712
// hasher's integer parser accepts them.
func normalizeValues(v map[string]any) {
	for key, val := range v {
		switch t := val.(type) {
		case json.Number:
			v[key] = t.String()
		case []any:
			for i, item := range t {
				if n, ok := item.(json.Number); ok {
					t[i] = n.String()
				}
			}
		}
	}
}

// Publication fetches one publication by id.
func (c *Client) Publication(ctx context.Context, id string) (*Publication, error) {
	var out struct {
		Publication *Publication `json:"publication"`
	}

	vars := map[string]any{"request": map[string]any{"publicationId": id}}
	if err := c.execute(ctx, publicationQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Publication == nil {
		return nil, fmt.Errorf("publication %s not found", id)
	}
	return out.Publication, nil
}

// Publications lists publications matching the filter.
func (c *Client) Publications(ctx context.Context, req PublicationsRequest) ([]Publication, error) {
	vars, err := asVariables(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var out struct {
		Publications struct {
			Items []Publication `json:"items"`
		} `json:"publications"`
	}
	if err := c.execute(ctx, publicationsQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.Publications.Items, nil
}

// ExplorePublications lists publications by discovery criteria. The request
// carries a sortCriteria so it is sent unauthenticated.
func (c *Client) ExplorePublications(ctx context.Context, req ExploreRequest) ([]Publication, error) {
	vars, err := asVariables(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var out struct {
		ExplorePublications struct {
			Items []Publication `json:"items"`
		} `json:"explorePublications"`
	}
	if err := c.execute(ctx, explorePublicationsQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.ExplorePublications.Items, nil
}

// HasTxHashBeenIndexed queries the current indexing state of txHash. Never
// cached; indexing state changes over time.
func (c *Client) HasTxHashBeenIndexed(ctx context.Context, txHash string) (*TransactionStatus, error) {
	var out struct {
		Result *TransactionStatus `json:"hasTxHashBeenIndexed"`
	}

	vars := map[string]any{"request": map[string]any{"txHash": txHash}}
	if err := c.execute(ctx, hasTxHashBeenIndexedQuery, vars, &out); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, fmt.Errorf("empty indexing result for %s", txHash)
	}
	return out.Result, nil
}

var _ API = (*Client)(nil)
