package bridge

import (
	"time"

	logger "log/slog"

	"github.com/vietddude/bridge/internal/core/amount"
)

type Option func(*Orchestrator)

// WithConversionRate sets how many bridge token units one native unit buys.
func WithConversionRate(rate int64) Option {
	return func(o *Orchestrator) {
		o.rate = rate
	}
}

// WithNativeDecimals sets the scale used to parse the source amount.
func WithNativeDecimals(decimals int32) Option {
	return func(o *Orchestrator) {
		o.decimals = decimals
	}
}

// WithBridgeAddress sets the spender of the approval and the recipient of
// the transfer.
func WithBridgeAddress(addr string) Option {
	return func(o *Orchestrator) {
		o.bridgeAddress = addr
	}
}

// WithMintTarget sets the destination package, module, function and the
// token type name minted on the destination chain.
func WithMintTarget(packageID, module, function, tokenType string) Option {
	return func(o *Orchestrator) {
		o.mint = mintTarget{
			packageID: packageID,
			module:    module,
			function:  function,
			tokenType: tokenType,
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

type mintTarget struct {
	packageID string
	module    string
	function  string
	tokenType string
}

var defaultMintTarget = mintTarget{
	module:    "suipart",
	function:  "mint",
	tokenType: "SUIPART",
}

func defaults(o *Orchestrator) {
	o.rate = amount.DefaultConversionRate
	o.decimals = amount.NativeDecimals
	o.mint = defaultMintTarget
	o.log = logger.Default().With("component", "bridge")
	o.now = time.Now
}
