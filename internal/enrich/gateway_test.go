package enrich

import "testing"

func TestNormalizeImageURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "slow gateway rewritten",
			in:   "https://ipfs.io/ipfs/QmAbc123",
			want: "https://gateway.pinata.cloud/ipfs/QmAbc123",
		},
		{
			name: "http scheme rewritten",
			in:   "http://ipfs.io/ipfs/QmAbc123",
			want: "http://gateway.pinata.cloud/ipfs/QmAbc123",
		},
		{
			name: "other host untouched",
			in:   "https://arweave.net/abc",
			want: "https://arweave.net/abc",
		},
		{
			name: "fast gateway untouched",
			in:   "https://gateway.pinata.cloud/ipfs/QmAbc123",
			want: "https://gateway.pinata.cloud/ipfs/QmAbc123",
		},
		{
			name: "host substring in path untouched",
			in:   "https://example.com/ipfs.io/file.png",
			want: "https://example.com/ipfs.io/file.png",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeImageURL(tc.in); got != tc.want {
				t.Errorf("NormalizeImageURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLooksLikeImage(t *testing.T) {
	images := []string{
		"https://ipfs.io/ipfs/Qm123.png",
		"https://example.com/pic.JPG",
		"https://example.com/pic.jpeg?width=200",
		"https://example.com/anim.gif#frame",
		"https://example.com/img.webp",
		"https://example.com/logo.svg",
	}
	for _, uri := range images {
		if !LooksLikeImage(uri) {
			t.Errorf("expected %q to look like an image", uri)
		}
	}

	notImages := []string{
		"https://ipfs.io/ipfs/Qm123",
		"https://example.com/metadata.json",
		"https://example.com/token",
		"",
	}
	for _, uri := range notImages {
		if LooksLikeImage(uri) {
			t.Errorf("expected %q to not look like an image", uri)
		}
	}
}
