package tx

import (
	"context"
	"math/big"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/therealharpaljadeja/lens-it/client/auth"
	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/graph"
	"github.com/therealharpaljadeja/lens-it/crypto/signer"
)

// SignedEnvelope carries the split signature components plus the echoed
// deadline, passed verbatim into the on-chain call.
type SignedEnvelope struct {
	V        uint8
	R        [32]byte
	S        [32]byte
	Deadline *big.Int
}

// SessionEnsurer is the authentication precondition enforced before any
// typed-data request.
type SessionEnsurer interface {
	EnsureAuthenticated(ctx context.Context) (auth.Session, error)
}

// TypedDataAPI is the slice of the social-graph surface the builder uses.
type TypedDataAPI interface {
	CreatePostTypedData(ctx context.Context, req graph.PostRequest) (*graph.TypedDataEnvelope, error)
	CreateCommentTypedData(ctx context.Context, req graph.CommentRequest) (*graph.TypedDataEnvelope, error)
	CreateFollowTypedData(ctx context.Context, req graph.FollowRequest) (*graph.TypedDataEnvelope, error)
	CreateCollectTypedData(ctx context.Context, req graph.CollectRequest) (*graph.TypedDataEnvelope, error)
}

// Builder requests typed-data envelopes from the API, signs them and submits
// the corresponding *WithSig contract call. An envelope's nonce is single
// use: a failed submission must re-request a fresh envelope, never resubmit
// the stale one.
type Builder struct {
	api    TypedDataAPI
	authn  SessionEnsurer
	signer signer.Signer
	hub    HubClient
	clock  func() time.Time
	logger log.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the time source used for envelope expiry checks.
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) { b.clock = clock }
}

// WithLogger sets the builder logger.
func WithLogger(l log.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder wires a transaction builder.
func NewBuilder(api TypedDataAPI, authn SessionEnsurer, s signer.Signer, hub HubClient, opts ...BuilderOption) *Builder {
	b := &Builder{
		api:    api,
		authn:  authn,
		signer: s,
		hub:    hub,
		clock:  time.Now,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit runs the full meta-transaction flow for one action: authenticate,
// request an envelope, sign it and call the matching contract method.
// Returns the chain transaction hash.
func (b *Builder) Submit(ctx context.Context, p Params) (common.Hash, error) {
	if err := p.Validate(); err != nil {
		return common.Hash{}, err
	}

	if _, err := b.authn.EnsureAuthenticated(ctx); err != nil {
		return common.Hash{}, err
	}

	env, err := b.requestEnvelope(ctx, p)
	if err != nil {
		return common.Hash{}, errors.WrapError(err, errors.ErrChainSubmissionError, "typed-data request failed")
	}

	// Expiry must be checked before the signer is invoked: signing an
	// expired envelope wastes a wallet prompt on a doomed submission.
	if !env.ExpiresAt.IsZero() && b.clock().After(env.ExpiresAt) {
		return common.Hash{}, errors.ErrEnvelopeExpired.Wrapf("envelope %s expired at %s", env.ID, env.ExpiresAt)
	}

	sig, err := b.signer.SignTypedData(ctx, env.TypedData())
	if err != nil {
		return common.Hash{}, errors.WrapError(err, errors.ErrSignatureDeclined, "typed-data signing failed")
	}

	v, r, s, err := signer.SplitSignature(sig)
	if err != nil {
		return common.Hash{}, errors.WrapError(err, errors.ErrSignatureDeclined, "malformed signature")
	}

	deadline, err := valueBig(env.Value, "deadline")
	if err != nil {
		return common.Hash{}, errors.WrapError(err, errors.ErrChainSubmissionError, "envelope missing deadline")
	}

	signed := SignedEnvelope{V: v, R: r, S: s, Deadline: deadline}

	b.logger.Info("submitting meta-transaction", "action", p.Kind(), "envelope_id", env.ID)

	hash, err := b.submitSigned(ctx, p.Kind(), env, signed)
	if err != nil {
		return common.Hash{}, errors.WrapError(err, errors.ErrChainSubmissionError, "%s submission failed", p.Kind())
	}

	return hash, nil
}

func (b *Builder) requestEnvelope(ctx context.Context, p Params) (*graph.TypedDataEnvelope, error) {
	switch params := p.(type) {
	case PostParams:
		return b.api.CreatePostTypedData(ctx, params.request())
	case CommentParams:
		return b.api.CreateCommentTypedData(ctx, params.request())
	case FollowParams:
		return b.api.CreateFollowTypedData(ctx, params.request())
	case CollectParams:
		return b.api.CreateCollectTypedData(ctx, params.request())
	default:
		return nil, errors.ErrInvalidConfig.Wrapf("unsupported action kind %q", p.Kind())
	}
}

func (b *Builder) submitSigned(ctx context.Context, kind ActionKind, env *graph.TypedDataEnvelope, signed SignedEnvelope) (common.Hash, error) {
	switch kind {
	case ActionPost:
		return b.hub.PostWithSig(ctx, env.Value, signed)
	case ActionComment:
		return b.hub.CommentWithSig(ctx, env.Value, signed)
	case ActionFollow:
		return b.hub.FollowWithSig(ctx, b.signer.Address(), env.Value, signed)
	case ActionCollect:
		return b.hub.CollectWithSig(ctx, b.signer.Address(), env.Value, signed)
	default:
		return common.Hash{}, errors.ErrInvalidConfig.Wrapf("unsupported action kind %q", kind)
	}
}
