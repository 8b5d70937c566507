package gating

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

func testAuthSig() AuthSig {
	return AuthSig{
		Sig:           "0xsig",
		DerivedVia:    "web3.eth.personal.sign",
		SignedMessage: "msg",
		Address:       "0x2222222222222222222222222222222222222222",
	}
}

func TestHTTPNetworkSaveEncryptionKey(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/encryption/store", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req saveKeyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, base64.StdEncoding.EncodeToString(key), req.SymmetricKey)
		require.Equal(t, "mumbai", req.Chain)
		require.Equal(t, testAuthSig(), req.AuthSig)
		require.NotNil(t, req.Conditions)
		require.Equal(t, 1, req.Conditions.LeafCount())

		json.NewEncoder(w).Encode(saveKeyResponse{EncryptedSymmetricKey: "handle-1"})
	}))
	defer server.Close()

	network := NewHTTPNetwork(server.URL, nil)
	tree := NewTree()
	require.NoError(t, json.Unmarshal([]byte(`{"leaf":{
		"contractAddress":"0x60Ae865ee4C725cd04353b5AAb364553f56ceF82",
		"functionName":"ownerOf","functionParams":["1"],"chain":"mumbai",
		"returnValueTest":{"comparator":"=","value":":userAddress"}}}`), tree))

	handle, err := network.SaveEncryptionKey(context.Background(), tree, key, testAuthSig(), "mumbai")
	require.NoError(t, err)
	require.Equal(t, "handle-1", handle)
}

func TestHTTPNetworkSaveEmptyHandle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(saveKeyResponse{})
	}))
	defer server.Close()

	network := NewHTTPNetwork(server.URL, nil)
	_, err := network.SaveEncryptionKey(context.Background(), NewTree(), []byte("k"), testAuthSig(), "mumbai")
	require.ErrorIs(t, err, errors.ErrGatingNetworkError)
}

func TestHTTPNetworkGetEncryptionKey(t *testing.T) {
	key := []byte("fedcba9876543210fedcba9876543210")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/encryption/retrieve", r.URL.Path)

		var req getKeyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "handle-1", req.ToDecrypt)

		json.NewEncoder(w).Encode(getKeyResponse{
			SymmetricKey: base64.StdEncoding.EncodeToString(key),
		})
	}))
	defer server.Close()

	network := NewHTTPNetwork(server.URL, nil)
	got, err := network.GetEncryptionKey(context.Background(), NewTree(), "handle-1", testAuthSig(), "mumbai")
	require.NoError(t, err)
	require.Equal(t, key, got)
}

func TestHTTPNetworkStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, errors.ErrAccessDenied},
		{"forbidden", http.StatusForbidden, errors.ErrAccessDenied},
		{"server error", http.StatusInternalServerError, errors.ErrGatingNetworkError},
		{"bad request", http.StatusBadRequest, errors.ErrGatingNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			network := NewHTTPNetwork(server.URL, nil)
			_, err := network.GetEncryptionKey(context.Background(), NewTree(), "h", testAuthSig(), "mumbai")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPNetworkMalformedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(getKeyResponse{SymmetricKey: "!!not-base64!!"})
	}))
	defer server.Close()

	network := NewHTTPNetwork(server.URL, nil)
	_, err := network.GetEncryptionKey(context.Background(), NewTree(), "h", testAuthSig(), "mumbai")
	require.ErrorIs(t, err, errors.ErrGatingNetworkError)
}

func TestHTTPNetworkUnreachable(t *testing.T) {
	network := NewHTTPNetwork("http://127.0.0.1:1", nil)

	_, err := network.SaveEncryptionKey(context.Background(), NewTree(), []byte("k"), testAuthSig(), "mumbai")
	require.ErrorIs(t, err, errors.ErrGatingNetworkError)
}

func TestAuthSigStringHidesSignature(t *testing.T) {
	s := testAuthSig().String()
	require.Contains(t, s, "0x2222222222222222222222222222222222222222")
	require.NotContains(t, s, "0xsig")
}
