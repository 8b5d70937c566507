package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/gating"
	"github.com/therealharpaljadeja/lens-it/client/graph"
	"github.com/therealharpaljadeja/lens-it/crypto/signer"
)

// Session is the authenticated state for one wallet address. Owned
// exclusively by the Authenticator; readers always go through
// EnsureAuthenticated and never mutate it.
type Session struct {
	AccessToken  string
	RefreshToken string
	OwnerAddress string
}

// API is the slice of the social-graph surface the authenticator uses.
type API interface {
	Challenge(ctx context.Context, address string) (string, error)
	Authenticate(ctx context.Context, address, signature string) (graph.AuthTokens, error)
	Verify(ctx context.Context, accessToken string) (bool, error)
}

// Authenticator obtains and refreshes the session via challenge/sign/verify.
// Concurrent EnsureAuthenticated calls for the same address are coalesced so
// one user action never issues two challenges.
type Authenticator struct {
	api    API
	signer signer.Signer
	store  TokenStore
	logger log.Logger
	clock  func() time.Time

	group singleflight.Group

	mu         sync.Mutex
	gatingAuth *gating.AuthSig
}

// NewAuthenticator wires the session authenticator.
func NewAuthenticator(api API, s signer.Signer, store TokenStore, logger log.Logger) *Authenticator {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Authenticator{
		api:    api,
		signer: s,
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// Store exposes the token store so the graph client can attach the bearer
// header on authenticated operations.
func (a *Authenticator) Store() TokenStore {
	return a.store
}

// EnsureAuthenticated returns a valid session, reusing the stored token when
// the API still accepts it and running the challenge flow otherwise.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) (Session, error) {
	address := a.signer.Address().Hex()

	v, err, _ := a.group.Do(address, func() (any, error) {
		return a.ensure(ctx, address)
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

func (a *Authenticator) ensure(ctx context.Context, address string) (Session, error) {
	if token, ok := a.store.AccessToken(); ok && !a.expiredLocally(token) {
		valid, err := a.api.Verify(ctx, token)
		if err != nil {
			// Verification errors mean "not authenticated", never a hard
			// failure; fall through to a fresh challenge.
			a.logger.Debug("token verification errored, re-challenging", "err", err)
		} else if valid {
			refresh, _ := a.store.RefreshToken()
			return Session{AccessToken: token, RefreshToken: refresh, OwnerAddress: address}, nil
		}
	}

	a.logger.Info("authenticating", "address", address)

	challenge, err := a.api.Challenge(ctx, address)
	if err != nil {
		return Session{}, errors.WrapError(err, errors.ErrAuthServerError, "challenge request failed")
	}

	sig, err := a.signer.SignMessage(ctx, []byte(challenge))
	if err != nil {
		return Session{}, errors.WrapError(err, errors.ErrAuthRejected, "challenge signing failed")
	}

	tokens, err := a.api.Authenticate(ctx, address, hexutil.Encode(sig))
	if err != nil {
		return Session{}, errors.WrapError(err, errors.ErrAuthServerError, "authenticate request failed")
	}

	if err := a.store.SaveTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		OwnerAddress: address,
	}, nil
}

// expiredLocally inspects the access token's exp claim without verifying the
// signature. An expired token skips the verify round trip.
func (a *Authenticator) expiredLocally(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Not a parseable JWT; let the API's verify query decide.
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return a.clock().After(exp.Time)
}

// Disconnect clears the stored tokens and the cached gating authorization.
func (a *Authenticator) Disconnect() error {
	a.mu.Lock()
	a.gatingAuth = nil
	a.mu.Unlock()

	return a.store.Clear()
}

// SignGatingAuth produces the authorization signature the gating network
// requires. Cached for the session; Disconnect drops it.
func (a *Authenticator) SignGatingAuth(ctx context.Context) (gating.AuthSig, error) {
	a.mu.Lock()
	if a.gatingAuth != nil {
		sig := *a.gatingAuth
		a.mu.Unlock()
		return sig, nil
	}
	a.mu.Unlock()

	address := a.signer.Address().Hex()
	message := gatingAuthMessage(address, a.clock())

	sig, err := a.signer.SignMessage(ctx, []byte(message))
	if err != nil {
		return gating.AuthSig{}, errors.WrapError(err, errors.ErrAuthRejected, "gating authorization signing failed")
	}

	authSig := gating.AuthSig{
		Sig:           hexutil.Encode(sig),
		DerivedVia:    "web3.eth.personal.sign",
		SignedMessage: message,
		Address:       address,
	}

	a.mu.Lock()
	a.gatingAuth = &authSig
	a.mu.Unlock()

	return authSig, nil
}

// gatingAuthMessage builds the SIWE-style statement the gating network
// expects to recover the caller's address from.
func gatingAuthMessage(address string, now time.Time) string {
	return fmt.Sprintf(
		"I am creating an account to use this application.\n\nAddress: %s\nIssued At: %s",
		address, now.UTC().Format(time.RFC3339),
	)
}
