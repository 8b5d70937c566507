package tx

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// hubABI covers the *WithSig entry points and the ownerOf predicate target.
const hubABI = `[
  {"name":"postWithSig","type":"function","stateMutability":"nonpayable","inputs":[{"name":"vars","type":"tuple","components":[
    {"name":"profileId","type":"uint256"},
    {"name":"contentURI","type":"string"},
    {"name":"collectModule","type":"address"},
    {"name":"collectModuleInitData","type":"bytes"},
    {"name":"referenceModule","type":"address"},
    {"name":"referenceModuleInitData","type":"bytes"},
    {"name":"sig","type":"tuple","components":[
      {"name":"v","type":"uint8"},
      {"name":"r","type":"bytes32"},
      {"name":"s","type":"bytes32"},
      {"name":"deadline","type":"uint256"}]}]}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"commentWithSig","type":"function","stateMutability":"nonpayable","inputs":[{"name":"vars","type":"tuple","components":[
    {"name":"profileId","type":"uint256"},
    {"name":"contentURI","type":"string"},
    {"name":"profileIdPointed","type":"uint256"},
    {"name":"pubIdPointed","type":"uint256"},
    {"name":"referenceModuleData","type":"bytes"},
    {"name":"collectModule","type":"address"},
    {"name":"collectModuleInitData","type":"bytes"},
    {"name":"referenceModule","type":"address"},
    {"name":"referenceModuleInitData","type":"bytes"},
    {"name":"sig","type":"tuple","components":[
      {"name":"v","type":"uint8"},
      {"name":"r","type":"bytes32"},
      {"name":"s","type":"bytes32"},
      {"name":"deadline","type":"uint256"}]}]}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"followWithSig","type":"function","stateMutability":"nonpayable","inputs":[{"name":"vars","type":"tuple","components":[
    {"name":"follower","type":"address"},
    {"name":"profileIds","type":"uint256[]"},
    {"name":"datas","type":"bytes[]"},
    {"name":"sig","type":"tuple","components":[
      {"name":"v","type":"uint8"},
      {"name":"r","type":"bytes32"},
      {"name":"s","type":"bytes32"},
      {"name":"deadline","type":"uint256"}]}]}],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"name":"collectWithSig","type":"function","stateMutability":"nonpayable","inputs":[{"name":"vars","type":"tuple","components":[
    {"name":"collector","type":"address"},
    {"name":"profileId","type":"uint256"},
    {"name":"pubId","type":"uint256"},
    {"name":"data","type":"bytes"},
    {"name":"sig","type":"tuple","components":[
      {"name":"v","type":"uint8"},
      {"name":"r","type":"bytes32"},
      {"name":"s","type":"bytes32"},
      {"name":"deadline","type":"uint256"}]}]}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"ownerOf","type":"function","stateMutability":"view","inputs":[
    {"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]}
]`

// HubClient is the chain contract boundary: the *WithSig relayed calls plus
// the ownerOf predicate read.
type HubClient interface {
	PostWithSig(ctx context.Context, value map[string]any, sig SignedEnvelope) (common.Hash, error)
	CommentWithSig(ctx context.Context, value map[string]any, sig SignedEnvelope) (common.Hash, error)
	FollowWithSig(ctx context.Context, follower common.Address, value map[string]any, sig SignedEnvelope) (common.Hash, error)
	CollectWithSig(ctx context.Context, collector common.Address, value map[string]any, sig SignedEnvelope) (common.Hash, error)
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
}

// sigParts matches the sig tuple in every *WithSig call.
type sigParts struct {
	V        uint8
	R        [32]byte
	S        [32]byte
	Deadline *big.Int
}

type postWithSigData struct {
	ProfileId               *big.Int
	ContentURI              string
	CollectModule           common.Address
	CollectModuleInitData   []byte
	ReferenceModule         common.Address
	ReferenceModuleInitData []byte
	Sig                     sigParts
}

type commentWithSigData struct {
	ProfileId               *big.Int
	ContentURI              string
	ProfileIdPointed        *big.Int
	PubIdPointed            *big.Int
	ReferenceModuleData     []byte
	CollectModule           common.Address
	CollectModuleInitData   []byte
	ReferenceModule         common.Address
	ReferenceModuleInitData []byte
	Sig                     sigParts
}

type followWithSigData struct {
	Follower   common.Address
	ProfileIds []*big.Int
	Datas      [][]byte
	Sig        sigParts
}

type collectWithSigData struct {
	Collector common.Address
	ProfileId *big.Int
	PubId     *big.Int
	Data      []byte
	Sig       sigParts
}

// EthHubClient submits relayed calls to the hub contract over JSON-RPC.
type EthHubClient struct {
	contract *bind.BoundContract
	opts     *bind.TransactOpts
}

// NewEthHubClient dials the RPC endpoint and binds the hub contract. The key
// pays gas for the relayed submissions.
func NewEthHubClient(rpcURL string, hubAddress common.Address, chainID *big.Int, key *ecdsa.PrivateKey) (*EthHubClient, error) {
	backend, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrChainSubmissionError, "failed to dial chain RPC %s", rpcURL)
	}

	parsed, err := abi.JSON(strings.NewReader(hubABI))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInvalidConfig, "failed to parse hub ABI")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInvalidConfig, "failed to build transactor")
	}

	contract := bind.NewBoundContract(hubAddress, parsed, backend, backend, backend)
	return &EthHubClient{contract: contract, opts: opts}, nil
}

func (c *EthHubClient) transact(ctx context.Context, method string, arg any) (common.Hash, error) {
	opts := *c.opts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, arg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s call failed: %w", method, err)
	}
	return tx.Hash(), nil
}

// PostWithSig submits a relayed post.
func (c *EthHubClient) PostWithSig(ctx context.Context, value map[string]any, sig SignedEnvelope) (common.Hash, error) {
	data, err := postDataFromValue(value, sig)
	if err != nil {
		return common.Hash{}, err
	}
	return c.transact(ctx, "postWithSig", data)
}

// CommentWithSig submits a relayed comment.
func (c *EthHubClient) CommentWithSig(ctx context.Context, value map[string]any, sig SignedEnvelope) (common.Hash, error) {
	data, err := commentDataFromValue(value, sig)
	if err != nil {
		return common.Hash{}, err
	}
	return c.transact(ctx, "commentWithSig", data)
}

// FollowWithSig submits a relayed follow on behalf of follower.
func (c *EthHubClient) FollowWithSig(ctx context.Context, follower common.Address, value map[string]any, sig SignedEnvelope) (common.Hash, error) {
	data, err := followDataFromValue(follower, value, sig)
	if err != nil {
		return common.Hash{}, err
	}
	return c.transact(ctx, "followWithSig", data)
}

// CollectWithSig submits a relayed collect on behalf of collector.
func (c *EthHubClient) CollectWithSig(ctx context.Context, collector common.Address, value map[string]any, sig SignedEnvelope) (common.Hash, error) {
	data, err := collectDataFromValue(collector, value, sig)
	if err != nil {
		return common.Hash{}, err
	}
	return c.transact(ctx, "collectWithSig", data)
}

// OwnerOf reads the current owner of an identity token.
func (c *EthHubClient) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "ownerOf", tokenID); err != nil {
		return common.Address{}, fmt.Errorf("ownerOf call failed: %w", err)
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result arity %d", len(out))
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result type %T", out[0])
	}
	return addr, nil
}

var _ HubClient = (*EthHubClient)(nil)

func envelopeSig(sig SignedEnvelope) sigParts {
	return sigParts{V: sig.V, R: sig.R, S: sig.S, Deadline: sig.Deadline}
}

func postDataFromValue(value map[string]any, sig SignedEnvelope) (postWithSigData, error) {
	var (
		data postWithSigData
		err  error
	)

	if data.ProfileId, err = valueBig(value, "profileId"); err != nil {
		return data, err
	}
	if data.ContentURI, err = valueString(value, "contentURI"); err != nil {
		return data, err
	}
	if data.CollectModule, err = valueAddress(value, "collectModule"); err != nil {
		return data, err
	}
	if data.CollectModuleInitData, err = valueBytes(value, "collectModuleInitData"); err != nil {
		return data, err
	}
	if data.ReferenceModule, err = valueAddress(value, "referenceModule"); err != nil {
		return data, err
	}
	if data.ReferenceModuleInitData, err = valueBytes(value, "referenceModuleInitData"); err != nil {
		return data, err
	}

	data.Sig = envelopeSig(sig)
	return data, nil
}

func commentDataFromValue(value map[string]any, sig SignedEnvelope) (commentWithSigData, error) {
	var (
		data commentWithSigData
		err  error
	)

	if data.ProfileId, err = valueBig(value, "profileId"); err != nil {
		return data, err
	}
	if data.ContentURI, err = valueString(value, "contentURI"); err != nil {
		return data, err
	}
	if data.ProfileIdPointed, err = valueBig(value, "profileIdPointed"); err != nil {
		return data, err
	}
	if data.PubIdPointed, err = valueBig(value, "pubIdPointed"); err != nil {
		return data, err
	}
	if data.ReferenceModuleData, err = valueBytes(value, "referenceModuleData"); err != nil {
		return data, err
	}
	if data.CollectModule, err = valueAddress(value, "collectModule"); err != nil {
		return data, err
	}
	if data.CollectModuleInitData, err = valueBytes(value, "collectModuleInitData"); err != nil {
		return data, err
	}
	if data.ReferenceModule, err = valueAddress(value, "referenceModule"); err != nil {
		return data, err
	}
	if data.ReferenceModuleInitData, err = valueBytes(value, "referenceModuleInitData"); err != nil {
		return data, err
	}

	data.Sig = envelopeSig(sig)
	return data, nil
}

func followDataFromValue(follower common.Address, value map[string]any, sig SignedEnvelope) (followWithSigData, error) {
	var (
		data followWithSigData
		err  error
	)

	data.Follower = follower
	if data.ProfileIds, err = valueBigSlice(value, "profileIds"); err != nil {
		return data, err
	}
	if data.Datas, err = valueBytesSlice(value, "datas"); err != nil {
		return data, err
	}

	data.Sig = envelopeSig(sig)
	return data, nil
}

func collectDataFromValue(collector common.Address, value map[string]any, sig SignedEnvelope) (collectWithSigData, error) {
	var (
		data collectWithSigData
		err  error
	)

	data.Collector = collector
	if data.ProfileId, err = valueBig(value, "profileId"); err != nil {
		return data, err
	}
	if data.PubId, err = valueBig(value, "pubId"); err != nil {
		return data, err
	}
	if data.Data, err = valueBytes(value, "data"); err != nil {
		return data, err
	}

	data.Sig = envelopeSig(sig)
	return data, nil
}

// valueBig reads an integer field that may arrive as a decimal string, a hex
// string or a JSON number.
func valueBig(value map[string]any, key string) (*big.Int, error) {
	raw, ok := value[key]
	if !ok {
		return nil, fmt.Errorf("envelope value missing %q", key)
	}
	return toBig(raw, key)
}

func toBig(raw any, key string) (*big.Int, error) {
	switch v := raw.(type) {
	case string:
		base := 10
		s := v
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			base = 16
			s = s[2:]
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("field %q is not an integer: %q", key, v)
		}
		return n, nil
	case json.Number:
		n, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, fmt.Errorf("field %q is not an integer: %q", key, v)
		}
		return n, nil
	case float64:
		return big.NewInt(int64(v)), nil
	case *big.Int:
		return v, nil
	default:
		return nil, fmt.Errorf("field %q has unexpected type %T", key, raw)
	}
}

func valueString(value map[string]any, key string) (string, error) {
	raw, ok := value[key]
	if !ok {
		return "", fmt.Errorf("envelope value missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q has unexpected type %T", key, raw)
	}
	return s, nil
}

func valueAddress(value map[string]any, key string) (common.Address, error) {
	s, err := valueString(value, key)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("field %q is not an address: %q", key, s)
	}
	return common.HexToAddress(s), nil
}

func valueBytes(value map[string]any, key string) ([]byte, error) {
	s, err := valueString(value, key)
	if err != nil {
		return nil, err
	}
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("field %q is not hex data: %w", key, err)
	}
	return b, nil
}

func valueBigSlice(value map[string]any, key string) ([]*big.Int, error) {
	raw, ok := value[key]
	if !ok {
		return nil, fmt.Errorf("envelope value missing %q", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q has unexpected type %T", key, raw)
	}

	out := make([]*big.Int, 0, len(items))
	for i, item := range items {
		n, err := toBig(item, fmt.Sprintf("%s[%d]", key, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func valueBytesSlice(value map[string]any, key string) ([][]byte, error) {
	raw, ok := value[key]
	if !ok {
		return nil, fmt.Errorf("envelope value missing %q", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q has unexpected type %T", key, raw)
	}

	out := make([][]byte, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field %s[%d] has unexpected type %T", key, i, item)
		}
		if s == "" || s == "0x" {
			out = append(out, []byte{})
			continue
		}
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("field %s[%d] is not hex data: %w", key, i, err)
		}
		out = append(out, b)
	}
	return out, nil
}
