// Package tx builds, signs and submits meta-transactions against the hub
// contract, and monitors their indexing by the social-graph API.
package tx

import (
	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/graph"
)

// ActionKind names the supported meta-transaction actions.
type ActionKind string

const (
	ActionPost    ActionKind = "post"
	ActionComment ActionKind = "comment"
	ActionFollow  ActionKind = "follow"
	ActionCollect ActionKind = "collect"
)

// Params is one action's request parameters, folded into the typed-data
// envelope request.
type Params interface {
	Kind() ActionKind
	Validate() error
}

// PostParams creates a new top-level publication.
type PostParams struct {
	ProfileID  string
	ContentURI string
}

func (p PostParams) Kind() ActionKind { return ActionPost }

func (p PostParams) Validate() error {
	if p.ProfileID == "" {
		return errors.ErrInvalidConfig.Wrap("post requires a profile id")
	}
	if p.ContentURI == "" {
		return errors.ErrInvalidConfig.Wrap("post requires a content URI")
	}
	return nil
}

func (p PostParams) request() graph.PostRequest {
	return graph.PostRequest{
		ProfileID:       p.ProfileID,
		ContentURI:      p.ContentURI,
		CollectModule:   graph.DefaultCollectModule(),
		ReferenceModule: graph.DefaultReferenceModule(),
	}
}

// CommentParams replies to an existing publication.
type CommentParams struct {
	ProfileID     string
	PublicationID string
	ContentURI    string
}

func (p CommentParams) Kind() ActionKind { return ActionComment }

func (p CommentParams) Validate() error {
	if p.ProfileID == "" {
		return errors.ErrInvalidConfig.Wrap("comment requires a profile id")
	}
	if p.PublicationID == "" {
		return errors.ErrInvalidConfig.Wrap("comment requires a publication id")
	}
	if p.ContentURI == "" {
		return errors.ErrInvalidConfig.Wrap("comment requires a content URI")
	}
	return nil
}

func (p CommentParams) request() graph.CommentRequest {
	return graph.CommentRequest{
		ProfileID:       p.ProfileID,
		PublicationID:   p.PublicationID,
		ContentURI:      p.ContentURI,
		CollectModule:   graph.DefaultCollectModule(),
		ReferenceModule: graph.DefaultReferenceModule(),
	}
}

// FollowParams follows one or more profiles.
type FollowParams struct {
	ProfileIDs []string
}

func (p FollowParams) Kind() ActionKind { return ActionFollow }

func (p FollowParams) Validate() error {
	if len(p.ProfileIDs) == 0 {
		return errors.ErrInvalidConfig.Wrap("follow requires at least one profile id")
	}
	return nil
}

func (p FollowParams) request() graph.FollowRequest {
	targets := make([]graph.FollowTarget, 0, len(p.ProfileIDs))
	for _, id := range p.ProfileIDs {
		targets = append(targets, graph.FollowTarget{Profile: id})
	}
	return graph.FollowRequest{Follow: targets}
}

// CollectParams collects an existing publication.
type CollectParams struct {
	PublicationID string
}

func (p CollectParams) Kind() ActionKind { return ActionCollect }

func (p CollectParams) Validate() error {
	if p.PublicationID == "" {
		return errors.ErrInvalidConfig.Wrap("collect requires a publication id")
	}
	return nil
}

func (p CollectParams) request() graph.CollectRequest {
	return graph.CollectRequest{PublicationID: p.PublicationID}
}
