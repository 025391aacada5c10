package feed

import (
	"encoding/json"

	"pumpwatch/internal/domain"
)

// probe is the minimal shape read before any typed field access.
// Feed messages carry either a txType discriminator (events) or a
// method/message field (acks and server notices).
type probe struct {
	TxType  string `json:"txType"`
	Method  string `json:"method"`
	Message string `json:"message"`
	Mint    string `json:"mint"`
}

// Decode validates a raw feed message and produces a discriminated
// result: a typed event and true, or a zero event and false for
// anything unrecognized. Unrecognized covers malformed JSON, acks,
// unknown txType values and events missing their mint.
func Decode(raw []byte) (domain.Event, bool) {
	var p probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Event{}, false
	}

	if p.Mint == "" {
		// Subscription acks and notices have no mint; neither do
		// broken event payloads. Both are skipped.
		return domain.Event{}, false
	}

	switch p.TxType {
	case "create":
		var ev domain.NewTokenEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return domain.Event{}, false
		}
		return domain.Event{Kind: domain.KindNewToken, NewToken: &ev}, true

	case "migrate":
		var ev domain.MigrationEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return domain.Event{}, false
		}
		return domain.Event{Kind: domain.KindMigration, Migration: &ev}, true

	case "buy", "sell":
		var ev domain.TradeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return domain.Event{}, false
		}
		return domain.Event{Kind: domain.KindTrade, Trade: &ev}, true
	}

	return domain.Event{}, false
}
