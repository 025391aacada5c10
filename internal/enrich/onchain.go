package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"pumpwatch/internal/solana"
)

// metaplexProgramID is the Metaplex Token Metadata program.
const metaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// OnchainMetadata is the display metadata recovered from chain state.
type OnchainMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// OnchainSource resolves token metadata from chain accounts. It tries
// the jsonParsed mint first (token-2022 metadata extension), then the
// Metaplex metadata PDA.
type OnchainSource struct {
	rpc solana.RPCClient
}

// NewOnchainSource creates an on-chain metadata source.
func NewOnchainSource(rpc solana.RPCClient) *OnchainSource {
	return &OnchainSource{rpc: rpc}
}

// Lookup fetches name/symbol for a mint. Single attempt per account,
// fail-open: a nil result with nil error means the chain simply has no
// metadata for this mint.
func (s *OnchainSource) Lookup(ctx context.Context, mint string) (*OnchainMetadata, error) {
	// 1. jsonParsed mint account
	parsed, err := s.rpc.GetAccountInfoParsed(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get parsed mint account: %w", err)
	}
	if meta := metadataFromParsed(parsed); meta != nil {
		return meta, nil
	}

	// 2. Metaplex metadata PDA
	pda := deriveMetadataPDA(mint)
	if pda == "" {
		return nil, nil
	}

	info, err := s.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	return parseMetaplexData(info.Data), nil
}

// metadataFromParsed pulls metadata out of a jsonParsed mint account.
// Token-2022 exposes it either directly under parsed.info.metadata or
// inside the extension list.
func metadataFromParsed(parsed *solana.ParsedAccountInfo) *OnchainMetadata {
	if parsed == nil || parsed.Parsed == nil {
		return nil
	}

	if m := parsed.Parsed.Info.Metadata; m != nil && (m.Name != "" || m.Symbol != "") {
		return &OnchainMetadata{Name: m.Name, Symbol: m.Symbol, URI: m.URI}
	}

	for _, ext := range parsed.Parsed.Info.Extensions {
		if ext.Extension == "tokenMetadata" && ext.State != nil {
			if ext.State.Name != "" || ext.State.Symbol != "" {
				return &OnchainMetadata{
					Name:   ext.State.Name,
					Symbol: ext.State.Symbol,
					URI:    ext.State.URI,
				}
			}
		}
	}

	return nil
}

// deriveMetadataPDA derives the Metaplex metadata PDA for a mint.
// Seeds: ["metadata", metaplex_program_id, mint].
func deriveMetadataPDA(mint string) string {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return ""
	}
	programBytes, err := base58.Decode(metaplexProgramID)
	if err != nil {
		return ""
	}

	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return ""
	}

	seeds := [][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}

	return derivePDA(seeds, programBytes)
}

// derivePDA derives a Program Derived Address using the Solana
// algorithm: hash seeds with a bump and find the first bump whose
// hash is off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// parseMetaplexData parses a Metaplex Token Metadata account.
// Layout: key u8 (4 = MetadataV1), updateAuthority pubkey (32),
// mint pubkey (32), then borsh strings name, symbol, uri
// (4-byte little-endian length + data each).
func parseMetaplexData(data string) *OnchainMetadata {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil
	}

	if len(decoded) < 100 {
		return nil
	}

	if decoded[0] != 4 { // MetadataV1 key
		return nil
	}

	offset := 65 // key(1) + updateAuthority(32) + mint(32)

	name, offset, ok := readBorshString(decoded, offset, 100)
	if !ok {
		return nil
	}
	symbol, offset, ok := readBorshString(decoded, offset, 20)
	if !ok {
		return &OnchainMetadata{Name: name}
	}
	uri, _, _ := readBorshString(decoded, offset, 220)

	if name == "" && symbol == "" {
		return nil
	}

	return &OnchainMetadata{Name: name, Symbol: symbol, URI: uri}
}

// readBorshString reads one length-prefixed string, trimming the NUL
// padding Metaplex leaves in fixed-size fields.
func readBorshString(data []byte, offset, maxLen int) (string, int, bool) {
	if offset+4 > len(data) {
		return "", offset, false
	}
	strLen := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	if strLen > maxLen || offset+strLen > len(data) {
		return "", offset, false
	}
	s := strings.TrimRight(string(data[offset:offset+strLen]), "\x00")
	return s, offset + strLen, true
}
