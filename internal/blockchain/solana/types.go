// internal/blockchain/solana/types.go
package solana

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ClientInterface определяет контракт адаптера сети для исполнителя свапов.
type ClientInterface interface {
	GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	SendRawTransaction(ctx context.Context, rawTx []byte) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, signature solana.Signature) error
	GetParsedTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error)
}

// Client — клиент Solana с пулом RPC-узлов (round-robin).
type Client struct {
	rpcClients []*RPCClient
	currIndex  int
	mutex      sync.Mutex
	commitment rpc.CommitmentType
	confirmTTL time.Duration
	logger     *zap.Logger
}

// RPCClient оборачивает одно RPC-подключение с его метриками.
type RPCClient struct {
	Client  *rpc.Client
	URL     string
	active  bool
	mutex   sync.RWMutex
	metrics *RPCMetrics
}

// RPCMetrics хранит статистику запросов к узлу.
type RPCMetrics struct {
	successCount uint64
	errorCount   uint64
	latency      time.Duration
	mutex        sync.RWMutex
}

var _ ClientInterface = (*Client)(nil)
