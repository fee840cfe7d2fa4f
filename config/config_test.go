package config

import "testing"

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" https://a.example , https://b.example ,,")
	want := []string{"https://a.example", "https://b.example"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLoadRequiresRPCEndpoints(t *testing.T) {
	t.Setenv("SOLPIPE_RPC_ENDPOINTS", "")
	t.Setenv("SOLPIPE_KEYPAIR_PATH", "/tmp/key.json")
	t.Setenv("SOLPIPE_MNEMONIC", "")
	t.Setenv("SOLPIPE_DESTINATION", "11111111111111111111111111111111")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error when SOLPIPE_RPC_ENDPOINTS is unset")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SOLPIPE_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	t.Setenv("SOLPIPE_KEYPAIR_PATH", "/tmp/key.json")
	t.Setenv("SOLPIPE_MNEMONIC", "")
	t.Setenv("SOLPIPE_DESTINATION", "11111111111111111111111111111111")
	t.Setenv("SOLPIPE_STRATEGY", "")
	t.Setenv("SOLPIPE_FANOUT", "")

	p, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Strategy != "standard" {
		t.Fatalf("expected default strategy 'standard', got %q", p.Strategy)
	}
	if p.Fanout != 4 {
		t.Fatalf("expected default fanout 4, got %d", p.Fanout)
	}
}

func TestLoadRequiresEitherKeypairOrMnemonic(t *testing.T) {
	t.Setenv("SOLPIPE_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	t.Setenv("SOLPIPE_KEYPAIR_PATH", "")
	t.Setenv("SOLPIPE_MNEMONIC", "")
	t.Setenv("SOLPIPE_DESTINATION", "11111111111111111111111111111111")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error when neither SOLPIPE_KEYPAIR_PATH nor SOLPIPE_MNEMONIC is set")
	}
}

func TestLoadRejectsBothKeypairAndMnemonic(t *testing.T) {
	t.Setenv("SOLPIPE_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	t.Setenv("SOLPIPE_KEYPAIR_PATH", "/tmp/key.json")
	t.Setenv("SOLPIPE_MNEMONIC", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	t.Setenv("SOLPIPE_DESTINATION", "11111111111111111111111111111111")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error when both SOLPIPE_KEYPAIR_PATH and SOLPIPE_MNEMONIC are set")
	}
}

func TestLoadAcceptsMnemonicWithoutKeypairPath(t *testing.T) {
	t.Setenv("SOLPIPE_RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com")
	t.Setenv("SOLPIPE_KEYPAIR_PATH", "")
	t.Setenv("SOLPIPE_MNEMONIC", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	t.Setenv("SOLPIPE_HD_ACCOUNT", "2")
	t.Setenv("SOLPIPE_DESTINATION", "11111111111111111111111111111111")

	p, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HDAccount != 2 {
		t.Fatalf("expected HD account 2, got %d", p.HDAccount)
	}
}
