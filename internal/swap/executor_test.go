// internal/swap/executor_test.go
package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	solanaclient "github.com/rovshanmuradov/jupiter-swap-service/internal/blockchain/solana"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/wallet"
)

var (
	cashMint  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	tokenMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// chainMock реализует solanaclient.ClientInterface с предопределёнными значениями.
type chainMock struct {
	decimals    uint8
	decimalsErr error
	sendSig     solana.Signature
	sendErr     error
	confirmErr  error
	txResult    *rpc.GetTransactionResult
	txErr       error

	sentRaw []byte
}

func (m *chainMock) GetMintDecimals(_ context.Context, _ solana.PublicKey) (uint8, error) {
	return m.decimals, m.decimalsErr
}

func (m *chainMock) SendRawTransaction(_ context.Context, rawTx []byte) (solana.Signature, error) {
	m.sentRaw = rawTx
	return m.sendSig, m.sendErr
}

func (m *chainMock) WaitForConfirmation(_ context.Context, _ solana.Signature) error {
	return m.confirmErr
}

func (m *chainMock) GetParsedTransaction(_ context.Context, _ solana.Signature) (*rpc.GetTransactionResult, error) {
	return m.txResult, m.txErr
}

// aggregatorMock реализует jupiter.AggregatorInterface.
type aggregatorMock struct {
	quote     json.RawMessage
	quoteErr  error
	swapTx    []byte
	buildErr  error
	gotAmount string
	called    bool
}

func (m *aggregatorMock) Quote(_ context.Context, _, _, rawAmount string) (json.RawMessage, error) {
	m.called = true
	m.gotAmount = rawAmount
	return m.quote, m.quoteErr
}

func (m *aggregatorMock) BuildSwap(_ context.Context, _ string, _ json.RawMessage) ([]byte, error) {
	return m.swapTx, m.buildErr
}

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &wallet.Wallet{PrivateKey: pk, PublicKey: pk.PublicKey()}
}

// unsignedSwapTx собирает сериализованную транзакцию в том виде,
// в каком её возвращает агрегатор: без подписей, c payer = кошелёк.
func unsignedSwapTx(t *testing.T, w *wallet.Wallet) []byte {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, w.PublicKey, w.PublicKey).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(w.PublicKey),
	)
	require.NoError(t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func balanceEntry(mint solana.PublicKey, rawAmount string, decimals uint8) rpc.TokenBalance {
	return rpc.TokenBalance{
		Mint: mint,
		UiTokenAmount: &rpc.UiTokenAmount{
			Amount:   rawAmount,
			Decimals: decimals,
		},
	}
}

// settledTx формирует метаданные подтверждённой транзакции:
// потрачено 10 USDC, получено 4 токена.
func settledTx() *rpc.GetTransactionResult {
	return &rpc.GetTransactionResult{
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				balanceEntry(cashMint, "100000000", 6), // 100 USDC
				balanceEntry(tokenMint, "0", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				balanceEntry(cashMint, "90000000", 6), // 90 USDC
				balanceEntry(tokenMint, "4000000000", 9),
			},
		},
	}
}

func newExecutor(chain *chainMock, agg *aggregatorMock) *Executor {
	return NewExecutor(chain, agg, cashMint, zap.NewNop())
}

func TestExecuteDerivesRealizedPrice(t *testing.T) {
	w := newTestWallet(t)
	sig := solana.Signature{1, 2, 3}

	chain := &chainMock{decimals: 6, sendSig: sig, txResult: settledTx()}
	agg := &aggregatorMock{
		quote:  json.RawMessage(`{"route":"test"}`),
		swapTx: unsignedSwapTx(t, w),
	}

	result, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("10"), w)
	require.NoError(t, err)

	assert.Equal(t, sig.String(), result.TxHash)
	// |дельта USDC| / |дельта токена| = 10 / 4
	assert.True(t, result.RealizedPrice.Equal(decimal.RequireFromString("2.5")),
		"realized price = %s", result.RealizedPrice)
	assert.NotNil(t, chain.sentRaw, "подписанная транзакция должна быть отправлена")
}

func TestExecuteConvertsHumanAmountExactly(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{decimals: 6, txResult: settledTx()}
	agg := &aggregatorMock{quote: json.RawMessage(`{}`), swapTx: unsignedSwapTx(t, w)}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1.5"), w)
	require.NoError(t, err)

	assert.Equal(t, "1500000", agg.gotAmount, "точная конвертация без плавающей точки")
}

func TestExecuteAmountBelowBaseUnit(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{decimals: 2}
	agg := &aggregatorMock{}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("0.001"), w)
	require.Error(t, err)
	assert.False(t, agg.called, "котировка не запрашивается для нулевого сырого количества")
}

func TestExecuteDecimalsUnavailable(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{decimalsErr: solanaclient.ErrAccountUnavailable}
	agg := &aggregatorMock{}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecimalsUnavailable)
	assert.False(t, agg.called)
}

func TestExecuteQuoteErrorPassesThrough(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{decimals: 6}
	agg := &aggregatorMock{quoteErr: &jupiter.QuoteError{Message: "no route found"}}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
	require.Error(t, err)

	var quoteErr *jupiter.QuoteError
	assert.ErrorAs(t, err, &quoteErr)
	assert.Equal(t, "no route found", quoteErr.Message)
}

func TestExecuteBuildErrorPassesThrough(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{decimals: 6}
	agg := &aggregatorMock{
		quote:    json.RawMessage(`{}`),
		buildErr: &jupiter.SwapBuildError{Message: "invalid quote"},
	}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
	require.Error(t, err)

	var buildErr *jupiter.SwapBuildError
	assert.ErrorAs(t, err, &buildErr)
}

func TestExecuteSubmissionError(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{decimals: 6, sendErr: errors.New("blockhash not found")}
	agg := &aggregatorMock{quote: json.RawMessage(`{}`), swapTx: unsignedSwapTx(t, w)}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
}

func TestExecuteOnChainFailure(t *testing.T) {
	w := newTestWallet(t)
	chain := &chainMock{
		decimals:   6,
		confirmErr: fmt.Errorf("%w: InstructionError", solanaclient.ErrTransactionFailed),
	}
	agg := &aggregatorMock{quote: json.RawMessage(`{}`), swapTx: unsignedSwapTx(t, w)}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOnChainFailure)
}

func TestExecuteTransactionNotFound(t *testing.T) {
	w := newTestWallet(t)
	agg := &aggregatorMock{quote: json.RawMessage(`{}`), swapTx: unsignedSwapTx(t, w)}

	t.Run("fetch error", func(t *testing.T) {
		chain := &chainMock{decimals: 6, txErr: errors.New("not found")}
		_, err := newExecutor(chain, agg).Execute(
			context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("missing meta", func(t *testing.T) {
		chain := &chainMock{decimals: 6, txResult: &rpc.GetTransactionResult{}}
		_, err := newExecutor(chain, agg).Execute(
			context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("missing token balance entry", func(t *testing.T) {
		result := &rpc.GetTransactionResult{
			Meta: &rpc.TransactionMeta{
				PreTokenBalances:  []rpc.TokenBalance{balanceEntry(cashMint, "100000000", 6)},
				PostTokenBalances: []rpc.TokenBalance{balanceEntry(cashMint, "90000000", 6)},
			},
		}
		chain := &chainMock{decimals: 6, txResult: result}
		_, err := newExecutor(chain, agg).Execute(
			context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestExecuteZeroTokenDeltaRejected(t *testing.T) {
	w := newTestWallet(t)
	result := &rpc.GetTransactionResult{
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				balanceEntry(cashMint, "100000000", 6),
				balanceEntry(tokenMint, "5000000000", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				balanceEntry(cashMint, "90000000", 6),
				balanceEntry(tokenMint, "5000000000", 9), // дельта 0
			},
		},
	}
	chain := &chainMock{decimals: 6, txResult: result}
	agg := &aggregatorMock{quote: json.RawMessage(`{}`), swapTx: unsignedSwapTx(t, w)}

	_, err := newExecutor(chain, agg).Execute(
		context.Background(), cashMint, tokenMint, decimal.RequireFromString("1"), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroTokenDelta)
}

// SELL: токен — входной актив, цена всё равно считается по дельтам.
func TestExecuteSellDirection(t *testing.T) {
	w := newTestWallet(t)
	sig := solana.Signature{9}
	result := &rpc.GetTransactionResult{
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				balanceEntry(cashMint, "0", 6),
				balanceEntry(tokenMint, "4000000000", 9),
			},
			PostTokenBalances: []rpc.TokenBalance{
				balanceEntry(cashMint, "10000000", 6), // получили 10 USDC
				balanceEntry(tokenMint, "0", 9),       // отдали 4 токена
			},
		},
	}
	chain := &chainMock{decimals: 9, sendSig: sig, txResult: result}
	agg := &aggregatorMock{quote: json.RawMessage(`{}`), swapTx: unsignedSwapTx(t, w)}

	res, err := newExecutor(chain, agg).Execute(
		context.Background(), tokenMint, cashMint, decimal.RequireFromString("4"), w)
	require.NoError(t, err)
	assert.True(t, res.RealizedPrice.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "4000000000", agg.gotAmount)
}
