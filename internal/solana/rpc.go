package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface used for metadata
// lookups.
type RPCClient interface {
	// GetAccountInfo retrieves raw account info (base64 data) by
	// public key. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetAccountInfoParsed retrieves jsonParsed account info by public
	// key. Returns nil if the account does not exist or the RPC node
	// cannot parse it.
	GetAccountInfoParsed(ctx context.Context, pubkey string) (*ParsedAccountInfo, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// AccountInfo represents Solana account information with raw data.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// ParsedAccountInfo carries the jsonParsed representation of an
// account. Token-2022 mints with the metadata extension expose
// name/symbol/uri under parsed.info.metadata or parsed.info.extensions.
type ParsedAccountInfo struct {
	Owner  string
	Parsed *ParsedData
}

// ParsedData is the parsed.data block of a jsonParsed account.
type ParsedData struct {
	Type string         `json:"type"`
	Info ParsedMintInfo `json:"info"`
}

// ParsedMintInfo is the subset of parsed mint info the enricher reads.
type ParsedMintInfo struct {
	Decimals   int                   `json:"decimals"`
	Supply     string                `json:"supply"`
	Metadata   *ParsedMetadata       `json:"metadata"`
	Extensions []ParsedMintExtension `json:"extensions"`
}

// ParsedMintExtension is one entry of a token-2022 extension list.
type ParsedMintExtension struct {
	Extension string          `json:"extension"`
	State     *ParsedMetadata `json:"state"`
}

// ParsedMetadata holds on-chain token display metadata.
type ParsedMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}
