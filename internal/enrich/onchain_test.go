package enrich

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"pumpwatch/internal/solana"
)

// wrapped SOL mint, a valid 32-byte base58 address
const testMint = "So11111111111111111111111111111111111111112"

// stubRPC implements solana.RPCClient with canned responses.
type stubRPC struct {
	parsed     *solana.ParsedAccountInfo
	parsedErr  error
	account    *solana.AccountInfo
	accountErr error
}

func (s *stubRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return s.account, s.accountErr
}

func (s *stubRPC) GetAccountInfoParsed(ctx context.Context, pubkey string) (*solana.ParsedAccountInfo, error) {
	return s.parsed, s.parsedErr
}

func (s *stubRPC) GetSlot(ctx context.Context) (int64, error) {
	return 0, nil
}

// metaplexAccountData builds a base64 MetadataV1 account body.
func metaplexAccountData(name, symbol, uri string) string {
	data := make([]byte, 65) // key + updateAuthority + mint
	data[0] = 4              // MetadataV1

	appendBorsh := func(s string, fixed int) {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(fixed))
		data = append(data, lenBuf[:]...)
		padded := make([]byte, fixed)
		copy(padded, s)
		data = append(data, padded...)
	}

	appendBorsh(name, 32)
	appendBorsh(symbol, 10)
	appendBorsh(uri, 50)

	return base64.StdEncoding.EncodeToString(data)
}

func TestOnchainSource_LookupToken2022Extension(t *testing.T) {
	rpc := &stubRPC{
		parsed: &solana.ParsedAccountInfo{
			Owner: "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb",
			Parsed: &solana.ParsedData{
				Type: "mint",
				Info: solana.ParsedMintInfo{
					Decimals: 6,
					Extensions: []solana.ParsedMintExtension{
						{Extension: "transferFeeConfig"},
						{
							Extension: "tokenMetadata",
							State: &solana.ParsedMetadata{
								Name:   "Ext Token",
								Symbol: "EXT",
								URI:    "https://meta.example/ext.json",
							},
						},
					},
				},
			},
		},
	}

	source := NewOnchainSource(rpc)

	meta, err := source.Lookup(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata from extension")
	}
	if meta.Name != "Ext Token" || meta.Symbol != "EXT" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
}

func TestOnchainSource_LookupDirectMetadata(t *testing.T) {
	rpc := &stubRPC{
		parsed: &solana.ParsedAccountInfo{
			Parsed: &solana.ParsedData{
				Type: "mint",
				Info: solana.ParsedMintInfo{
					Metadata: &solana.ParsedMetadata{Name: "Direct", Symbol: "DIR"},
				},
			},
		},
	}

	source := NewOnchainSource(rpc)

	meta, err := source.Lookup(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta == nil || meta.Name != "Direct" {
		t.Fatalf("expected direct metadata, got %+v", meta)
	}
}

func TestOnchainSource_LookupMetaplexFallback(t *testing.T) {
	rpc := &stubRPC{
		// jsonParsed has no metadata, the PDA account does
		parsed: &solana.ParsedAccountInfo{
			Parsed: &solana.ParsedData{Type: "mint"},
		},
		account: &solana.AccountInfo{
			Owner: metaplexProgramID,
			Data:  metaplexAccountData("Fallback Token", "FBT", "https://meta.example/fbt.json"),
		},
	}

	source := NewOnchainSource(rpc)

	meta, err := source.Lookup(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata from metaplex account")
	}
	if meta.Name != "Fallback Token" {
		t.Errorf("Name mismatch: got %q", meta.Name)
	}
	if meta.Symbol != "FBT" {
		t.Errorf("Symbol mismatch: got %q", meta.Symbol)
	}
	if meta.URI != "https://meta.example/fbt.json" {
		t.Errorf("URI mismatch: got %q", meta.URI)
	}
}

func TestOnchainSource_LookupNoMetadata(t *testing.T) {
	rpc := &stubRPC{}

	source := NewOnchainSource(rpc)

	meta, err := source.Lookup(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata, got %+v", meta)
	}
}

func TestOnchainSource_LookupInvalidMint(t *testing.T) {
	// Not a 32-byte base58 address: PDA derivation is skipped and the
	// lookup comes back empty instead of erroring.
	rpc := &stubRPC{}

	source := NewOnchainSource(rpc)

	meta, err := source.Lookup(context.Background(), "not-base58!")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata, got %+v", meta)
	}
}

func TestDeriveMetadataPDA(t *testing.T) {
	pda := deriveMetadataPDA(testMint)
	if pda == "" {
		t.Fatal("expected a PDA for a valid mint")
	}
	if pda == testMint {
		t.Error("PDA should differ from the mint")
	}

	if got := deriveMetadataPDA("short"); got != "" {
		t.Errorf("expected empty PDA for invalid mint, got %q", got)
	}
}

func TestParseMetaplexData(t *testing.T) {
	meta := parseMetaplexData(metaplexAccountData("Name", "SYM", "https://u.example"))
	if meta == nil {
		t.Fatal("expected parsed metadata")
	}
	if meta.Name != "Name" || meta.Symbol != "SYM" {
		t.Errorf("metadata mismatch: %+v", meta)
	}

	if parseMetaplexData("!!! not base64") != nil {
		t.Error("expected nil for invalid base64")
	}
	if parseMetaplexData(base64.StdEncoding.EncodeToString(make([]byte, 10))) != nil {
		t.Error("expected nil for short data")
	}

	// Wrong account key byte
	raw, _ := base64.StdEncoding.DecodeString(metaplexAccountData("Name", "SYM", ""))
	raw[0] = 1
	if parseMetaplexData(base64.StdEncoding.EncodeToString(raw)) != nil {
		t.Error("expected nil for non-metadata key")
	}
}
