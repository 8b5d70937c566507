// Package storage provides the content-addressed storage capability backing
// publication manifests and encrypted bundles. Refs use the ipfs:// scheme.
package storage

import (
	"context"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// RefScheme prefixes every content ref produced and accepted by stores.
const RefScheme = "ipfs://"

// Store abstracts content-addressed storage. Put returns an ipfs:// ref;
// Get accepts either an ipfs:// ref or a bare CID.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// ParseRef strips the ipfs:// scheme and validates the remaining CID.
func ParseRef(ref string) (string, error) {
	raw := strings.TrimPrefix(ref, RefScheme)
	raw = strings.TrimPrefix(raw, "/ipfs/")
	if raw == "" {
		return "", errors.ErrStorageError.Wrap("empty content ref")
	}

	if _, err := cid.Decode(raw); err != nil {
		return "", errors.WrapError(err, errors.ErrStorageError, "invalid content ref %q", ref)
	}

	return raw, nil
}

// FormatRef wraps a bare CID in the ipfs:// scheme.
func FormatRef(c string) string {
	return RefScheme + c
}
