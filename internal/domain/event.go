package domain

// EventKind discriminates the feed event variants.
type EventKind int

const (
	KindNewToken EventKind = iota + 1
	KindMigration
	KindTrade
)

// String returns the wire-level tag for the kind.
func (k EventKind) String() string {
	switch k {
	case KindNewToken:
		return "create"
	case KindMigration:
		return "migrate"
	case KindTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// Event is a tagged variant over the recognized feed message shapes.
// Exactly the field matching Kind is non-nil.
type Event struct {
	Kind      EventKind
	NewToken  *NewTokenEvent
	Migration *MigrationEvent
	Trade     *TradeEvent
}

// NewTokenEvent is a token-creation message from the push feed.
// Field names follow the feed's JSON payload.
type NewTokenEvent struct {
	Mint                  string  `json:"mint"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	URI                   string  `json:"uri"`
	Image                 string  `json:"image"`
	Description           string  `json:"description"`
	Signature             string  `json:"signature"`
	TraderPublicKey       string  `json:"traderPublicKey"`
	MarketCapSol          float64 `json:"marketCapSol"`
	Pool                  string  `json:"pool"`
	InitialBuy            float64 `json:"initialBuy"`
	SolAmount             float64 `json:"solAmount"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
	TimestampMs           int64   `json:"timestamp"`
}

// MigrationEvent signals a token graduating from its launch venue pool.
type MigrationEvent struct {
	Mint        string  `json:"mint"`
	Signature   string  `json:"signature"`
	Pool        string  `json:"pool"`
	SolAmount   float64 `json:"solAmount"`
	TimestampMs int64   `json:"timestamp"`
}

// TradeEvent is a buy or sell on a tracked token.
type TradeEvent struct {
	Mint            string  `json:"mint"`
	Signature       string  `json:"signature"`
	TraderPublicKey string  `json:"traderPublicKey"`
	TxType          string  `json:"txType"` // "buy" or "sell"
	SolAmount       float64 `json:"solAmount"`
	TokenAmount     float64 `json:"tokenAmount"`
	MarketCapSol    float64 `json:"marketCapSol"`
	Pool            string  `json:"pool"`
	TimestampMs     int64   `json:"timestamp"`
}
