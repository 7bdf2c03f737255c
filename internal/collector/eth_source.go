package collector

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
)

// 4-byte function selectors for the V2 factory and pair contracts.
var (
	allPairsLengthSelector = hexutil.MustDecode("0x574f2ba3")
	allPairsSelector       = hexutil.MustDecode("0x1e3dd18b")
	token0Selector         = hexutil.MustDecode("0x0dfe1681")
	token1Selector         = hexutil.MustDecode("0xd21220a7")
	getReservesSelector    = hexutil.MustDecode("0x0902f1ac")
)

// EthSource implements PairSource and ReservesSource over a JSON-RPC
// endpoint using raw eth_call, so it needs no generated bindings.
type EthSource struct {
	client  *ethclient.Client
	factory common.Address
}

func NewEthSource(rpcURL, factoryAddress string) (*EthSource, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc node %s: %w", rpcURL, err)
	}

	return &EthSource{
		client:  client,
		factory: common.HexToAddress(factoryAddress),
	}, nil
}

func (es *EthSource) CurrentBlock(ctx context.Context) (uint64, error) {
	return es.client.BlockNumber(ctx)
}

// ListAllPairs reads allPairsLength from the factory and then resolves every
// pair address by index.
func (es *EthSource) ListAllPairs(ctx context.Context) ([]string, error) {
	lengthWord, err := es.call(ctx, es.factory, allPairsLengthSelector, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read pair count from factory: %w", err)
	}
	if len(lengthWord) < 32 {
		return nil, fmt.Errorf("short response reading pair count: %d bytes", len(lengthWord))
	}
	count := new(big.Int).SetBytes(lengthWord[:32]).Uint64()

	pairs := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := make([]byte, 32)
		new(big.Int).SetUint64(i).FillBytes(index)
		result, err := es.call(ctx, es.factory, allPairsSelector, index)
		if err != nil {
			return nil, fmt.Errorf("failed to read pair %d: %w", i, err)
		}
		if len(result) < 32 {
			return nil, fmt.Errorf("short response reading pair %d: %d bytes", i, len(result))
		}
		pairs = append(pairs, addressString(result))
	}

	return pairs, nil
}

func (es *EthSource) TokensOf(ctx context.Context, pairAddress string) (string, string, error) {
	pair := common.HexToAddress(pairAddress)

	token0Word, err := es.call(ctx, pair, token0Selector, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to read token0 of %s: %w", pairAddress, err)
	}
	token1Word, err := es.call(ctx, pair, token1Selector, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to read token1 of %s: %w", pairAddress, err)
	}
	if len(token0Word) < 32 || len(token1Word) < 32 {
		return "", "", fmt.Errorf("short token response from pair %s", pairAddress)
	}

	return addressString(token0Word), addressString(token1Word), nil
}

// addressString extracts the address from a 32-byte return word in the
// canonical form used throughout the system: lowercase hex. Token addresses
// are compared and looked up as strings everywhere downstream, so mixed-case
// checksummed output would miss the supported set and the path map keys.
func addressString(word []byte) string {
	return strings.ToLower(common.BytesToAddress(word[12:32]).Hex())
}

// ReservesOf calls getReserves pinned to a block and decodes the raw words.
func (es *EthSource) ReservesOf(ctx context.Context, poolAddress string, blockNumber uint64) (*big.Int, *big.Int, error) {
	result, err := es.callAt(ctx, common.HexToAddress(poolAddress), getReservesSelector, nil,
		new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read reserves of %s: %w", poolAddress, err)
	}
	return DecodeReserveWords(result)
}

// DecodeReserveWords interprets the raw return data as four 32-byte words
// holding two 128-bit limbs per reserve: [r0 low, r0 high, r1 low, r1 high].
// Each reserve is the big-endian concatenation high-then-low of its limbs.
func DecodeReserveWords(data []byte) (*big.Int, *big.Int, error) {
	if len(data) < 4*32 {
		return nil, nil, fmt.Errorf("reserve response too short: %d bytes", len(data))
	}

	limb := func(word int) []byte {
		// The limb value sits in the low 16 bytes of its word
		return data[word*32+16 : (word+1)*32]
	}

	reserve0 := new(big.Int).SetBytes(append(append([]byte{}, limb(1)...), limb(0)...))
	reserve1 := new(big.Int).SetBytes(append(append([]byte{}, limb(3)...), limb(2)...))
	return reserve0, reserve1, nil
}

func (es *EthSource) call(ctx context.Context, to common.Address, selector, arg []byte) ([]byte, error) {
	return es.callAt(ctx, to, selector, arg, nil)
}

func (es *EthSource) callAt(ctx context.Context, to common.Address, selector, arg []byte, block *big.Int) ([]byte, error) {
	data := append(append([]byte{}, selector...), arg...)
	return es.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
}
