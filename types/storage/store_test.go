package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// A well-formed CIDv0 used across the ref tests.
const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"ipfs scheme", RefScheme + testCID, testCID, false},
		{"gateway path", "/ipfs/" + testCID, testCID, false},
		{"bare cid", testCID, testCID, false},
		{"empty", "", "", true},
		{"scheme only", RefScheme, "", true},
		{"not a cid", "ipfs://not-a-cid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRef(tt.ref)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrStorageError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRefRoundTrip(t *testing.T) {
	ref := FormatRef(testCID)
	require.Equal(t, RefScheme+testCID, ref)

	parsed, err := ParseRef(ref)
	require.NoError(t, err)
	require.Equal(t, testCID, parsed)
}

func TestGatewayStoreGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/"+testCID {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("stored content"))
	}))
	defer server.Close()

	store := NewGatewayStore(server.URL, nil)

	data, err := store.Get(context.Background(), FormatRef(testCID))
	require.NoError(t, err)
	require.Equal(t, []byte("stored content"), data)
}

func TestGatewayStoreGetMissing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	store := NewGatewayStore(server.URL, nil)

	_, err := store.Get(context.Background(), FormatRef(testCID))
	require.ErrorIs(t, err, errors.ErrStorageError)
}

func TestGatewayStoreGetBadRef(t *testing.T) {
	store := NewGatewayStore("http://unused.invalid", nil)

	_, err := store.Get(context.Background(), "ipfs://not-a-cid")
	require.ErrorIs(t, err, errors.ErrStorageError)
}

func TestGatewayStorePutIsReadOnly(t *testing.T) {
	store := NewGatewayStore("http://unused.invalid", nil)

	_, err := store.Put(context.Background(), []byte("data"))
	require.ErrorIs(t, err, errors.ErrStorageError)
}
