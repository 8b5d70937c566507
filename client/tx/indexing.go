package tx

import (
	"context"
	"time"

	"cosmossdk.io/log"

	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/graph"
)

// State is the indexing state machine's position. Querying is initial; the
// other three are terminal.
type State string

const (
	StateQuerying         State = "querying"
	StateIndexed          State = "indexed"
	StateValidationFailed State = "validation_failed"
	StateReverted         State = "reverted"
)

// Outcome is the terminal result of one indexing wait.
type Outcome struct {
	State  State
	TxHash string
	Reason string
}

// MonitorConfig bounds the polling loop.
type MonitorConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultMonitorConfig matches the Mumbai network defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		PollInterval: 1500 * time.Millisecond,
		MaxAttempts:  40,
	}
}

// IndexingAPI is the single query the monitor polls.
type IndexingAPI interface {
	HasTxHashBeenIndexed(ctx context.Context, txHash string) (*graph.TransactionStatus, error)
}

// Monitor polls the API until a submitted transaction is indexed or
// definitively fails. Every poll is a fresh network query; indexing state
// changes over time and a stale "not yet" must never shadow a later "yes".
type Monitor struct {
	api    IndexingAPI
	logger log.Logger
}

// NewMonitor wires an indexing monitor over the graph API.
func NewMonitor(api IndexingAPI, logger log.Logger) *Monitor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Monitor{api: api, logger: logger}
}

// AwaitIndexing polls until txHash reaches a terminal state or the attempt
// budget runs out. A "not yet" response is never an error; it re-arms the
// next poll. Exceeding MaxAttempts fails with IndexingTimeout. The error is
// nil only for an Indexed outcome.
func (m *Monitor) AwaitIndexing(ctx context.Context, txHash string, cfg MonitorConfig) (Outcome, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultMonitorConfig().PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMonitorConfig().MaxAttempts
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		status, err := m.api.HasTxHashBeenIndexed(ctx, txHash)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{State: StateQuerying, TxHash: txHash}, errors.WrapError(ctx.Err(), errors.ErrIndexingTimeout, "indexing wait cancelled")
			}
			// A failed poll is transient; the budget still bounds the loop.
			m.logger.Debug("indexing poll failed", "tx_hash", txHash, "attempt", attempt, "err", err)
		} else if outcome, terminal := evaluate(status, txHash); terminal {
			switch outcome.State {
			case StateIndexed:
				m.logger.Info("transaction indexed", "tx_hash", txHash, "attempts", attempt)
				return outcome, nil
			case StateValidationFailed:
				return outcome, errors.ErrValidationFailed.Wrap(outcome.Reason)
			case StateReverted:
				return outcome, errors.ErrReverted.Wrap(outcome.Reason)
			}
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return Outcome{State: StateQuerying, TxHash: txHash}, errors.WrapError(ctx.Err(), errors.ErrIndexingTimeout, "indexing wait cancelled")
		case <-time.After(cfg.PollInterval):
		}
	}

	return Outcome{State: StateQuerying, TxHash: txHash},
		errors.ErrIndexingTimeout.Wrapf("%s not indexed after %d attempts", txHash, cfg.MaxAttempts)
}

// evaluate applies the per-response transition rule. terminal is false for
// recognized-but-not-yet-final responses, which keep the machine in
// Querying.
func evaluate(status *graph.TransactionStatus, txHash string) (Outcome, bool) {
	if status.TypeName == graph.TxResultError {
		return Outcome{State: StateReverted, TxHash: txHash, Reason: status.Reason}, true
	}

	if ms := status.MetadataStatus; ms != nil {
		switch ms.Status {
		case graph.MetadataStatusSuccess:
			return Outcome{State: StateIndexed, TxHash: txHash}, true
		case graph.MetadataStatusValidationFailed:
			return Outcome{State: StateValidationFailed, TxHash: txHash, Reason: ms.Reason}, true
		}
	}

	if status.Indexed {
		return Outcome{State: StateIndexed, TxHash: txHash}, true
	}

	return Outcome{State: StateQuerying, TxHash: txHash}, false
}
