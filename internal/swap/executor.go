// internal/swap/executor.go
package swap

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	solanaclient "github.com/rovshanmuradov/jupiter-swap-service/internal/blockchain/solana"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/jupiter"
	"github.com/rovshanmuradov/jupiter-swap-service/internal/wallet"
)

// priceScale — точность деления при выводе реализованной цены.
const priceScale = 18

// Executor проводит своп через агрегатор: котировка -> сборка -> подпись ->
// отправка -> подтверждение -> сверка балансов. Операция не идемпотентна:
// после отправки транзакции повторять её нельзя, это риск двойного исполнения.
type Executor struct {
	chain    solanaclient.ClientInterface
	agg      jupiter.AggregatorInterface
	cashMint solana.PublicKey
	logger   *zap.Logger
}

// Result — итог исполненного свопа.
type Result struct {
	TxHash        string
	RealizedPrice decimal.Decimal // USD за единицу токена, из фактических дельт балансов
}

func NewExecutor(chain solanaclient.ClientInterface, agg jupiter.AggregatorInterface, cashMint solana.PublicKey, logger *zap.Logger) *Executor {
	return &Executor{
		chain:    chain,
		agg:      agg,
		cashMint: cashMint,
		logger:   logger.Named("swap-executor"),
	}
}

// Execute выполняет своп inputMint -> outputMint на humanAmount единиц
// входного актива и возвращает хеш транзакции вместе с реализованной ценой
// не-референсного токена.
func (e *Executor) Execute(ctx context.Context, inputMint, outputMint solana.PublicKey, humanAmount decimal.Decimal, signer *wallet.Wallet) (*Result, error) {
	log := e.logger.With(
		zap.String("input_mint", inputMint.String()),
		zap.String("output_mint", outputMint.String()),
		zap.String("amount", humanAmount.String()),
		zap.String("user", signer.PublicKey.String()),
	)

	// Шаг 1: точность входного актива.
	decimals, err := e.chain.GetMintDecimals(ctx, inputMint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecimalsUnavailable, err)
	}

	// Шаг 2: перевод в сырые целые единицы без плавающей точки.
	rawAmount := humanAmount.Shift(int32(decimals)).Truncate(0)
	if !rawAmount.IsPositive() {
		return nil, fmt.Errorf("amount %s is below one base unit of the input asset", humanAmount.String())
	}

	// Шаг 3: котировка. Без автоматических повторов.
	quote, err := e.agg.Quote(ctx, inputMint.String(), outputMint.String(), rawAmount.String())
	if err != nil {
		return nil, err
	}

	// Шаг 4: исполняемая транзакция под котировку.
	rawTx, err := e.agg.BuildSwap(ctx, signer.PublicKey.String(), quote)
	if err != nil {
		return nil, err
	}

	// Шаг 5: десериализация, подпись, отправка с preflight-проверкой.
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize swap transaction: %w", err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign swap transaction: %w", err)
	}
	signedTx, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize signed transaction: %w", err)
	}

	sig, err := e.chain.SendRawTransaction(ctx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	log = log.With(zap.String("tx_hash", sig.String()))
	log.Info("Swap transaction submitted")

	// Шаг 6: подтверждение на том же уровне коммитмента.
	if err := e.chain.WaitForConfirmation(ctx, sig); err != nil {
		if errors.Is(err, solanaclient.ErrTransactionFailed) {
			return nil, fmt.Errorf("%w: %v", ErrOnChainFailure, err)
		}
		return nil, err
	}

	// Шаги 7-8: дельты балансов подтверждённой транзакции и реализованная цена.
	price, err := e.deriveRealizedPrice(ctx, sig, inputMint, outputMint)
	if err != nil {
		return nil, err
	}

	log.Info("Swap settled", zap.String("realized_price", price.String()))

	return &Result{
		TxHash:        sig.String(),
		RealizedPrice: price,
	}, nil
}

// deriveRealizedPrice выводит цену сделки из pre/post балансов:
// |дельта референсного актива| / |дельта токена|.
func (e *Executor) deriveRealizedPrice(ctx context.Context, sig solana.Signature, inputMint, outputMint solana.PublicKey) (decimal.Decimal, error) {
	txResult, err := e.chain.GetParsedTransaction(ctx, sig)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrTransactionNotFound, err)
	}
	if txResult.Meta == nil || txResult.Meta.PreTokenBalances == nil || txResult.Meta.PostTokenBalances == nil {
		return decimal.Zero, fmt.Errorf("%w: missing balance metadata for %s", ErrTransactionNotFound, sig.String())
	}

	tokenMint := inputMint
	if inputMint.Equals(e.cashMint) {
		tokenMint = outputMint
	}

	preCash, preToken := pickBalances(txResult.Meta.PreTokenBalances, e.cashMint, tokenMint)
	postCash, postToken := pickBalances(txResult.Meta.PostTokenBalances, e.cashMint, tokenMint)

	if preCash == nil || preToken == nil || postCash == nil || postToken == nil {
		return decimal.Zero, fmt.Errorf("%w: incomplete token balance entries for %s", ErrTransactionNotFound, sig.String())
	}

	tokenDelta := balanceAmount(postToken).Sub(balanceAmount(preToken)).Abs()
	cashDelta := balanceAmount(preCash).Sub(balanceAmount(postCash)).Abs()

	if tokenDelta.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: tx %s", ErrZeroTokenDelta, sig.String())
	}

	return cashDelta.DivRound(tokenDelta, priceScale), nil
}

// pickBalances находит записи балансов по mint референсного актива и токена.
// При нескольких токен-аккаунтах одного mint берётся последняя запись.
func pickBalances(balances []rpc.TokenBalance, cashMint, tokenMint solana.PublicKey) (cash, token *rpc.TokenBalance) {
	for i := range balances {
		b := &balances[i]
		if b.Mint.Equals(cashMint) {
			cash = b
		}
		if b.Mint.Equals(tokenMint) {
			token = b
		}
	}
	return cash, token
}

// balanceAmount переводит запись баланса в человекочитаемые единицы,
// используя сырое целое количество и точность из метаданных.
func balanceAmount(b *rpc.TokenBalance) decimal.Decimal {
	if b.UiTokenAmount == nil {
		return decimal.Zero
	}
	raw, err := decimal.NewFromString(b.UiTokenAmount.Amount)
	if err != nil {
		return decimal.Zero
	}
	return raw.Shift(-int32(b.UiTokenAmount.Decimals))
}
