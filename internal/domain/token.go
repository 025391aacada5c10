package domain

// Pool tags identify the launch venue that produced a token event.
const (
	PoolPump = "pump"
	PoolBonk = "bonk"
)

// SocialLinks holds optional community links resolved from token metadata.
type SocialLinks struct {
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Discord  string `json:"discord,omitempty"`
}

// Empty reports whether no link is set.
func (s SocialLinks) Empty() bool {
	return s.Website == "" && s.Twitter == "" && s.Telegram == "" && s.Discord == ""
}

// TokenRecord is the canonical record for one observed token creation.
// Mint is the only required field; everything else is best-effort and
// may stay empty indefinitely. A later event for the same mint
// overwrites the mutable fields (last-write-wins).
type TokenRecord struct {
	Mint         string      `json:"mint"` // unique, immutable once set
	Name         string      `json:"name,omitempty"`
	Symbol       string      `json:"symbol,omitempty"`
	URI          string      `json:"uri,omitempty"`
	Image        string      `json:"image,omitempty"`
	Description  string      `json:"description,omitempty"`
	Creator      string      `json:"creator,omitempty"`
	MarketCapSol float64     `json:"marketCapSol,omitempty"`
	Pool         string      `json:"pool,omitempty"`
	Socials      SocialLinks `json:"socialLinks,omitempty"`
	TimestampMs  int64       `json:"timestamp"` // event creation time (ms)
}
