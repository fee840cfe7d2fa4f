package signer

import "testing"

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonicRejectsInvalidWordCount(t *testing.T) {
	if _, err := GenerateMnemonic(15); err == nil {
		t.Fatal("expected an error for an invalid word count")
	}
}

func TestGenerateMnemonicProducesValidatableMnemonics(t *testing.T) {
	m, err := GenerateMnemonic(12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewFromMnemonic(m, "", 0); err != nil {
		t.Fatalf("generated mnemonic should derive a signer: %v", err)
	}
}

func TestNewFromMnemonicRejectsInvalidMnemonic(t *testing.T) {
	if _, err := NewFromMnemonic("not a real mnemonic phrase at all", "", 0); err == nil {
		t.Fatal("expected an error for an invalid mnemonic")
	}
}

func TestNewFromMnemonicIsDeterministic(t *testing.T) {
	a, err := NewFromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewFromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Address().Equals(b.Address()) {
		t.Fatalf("same mnemonic+account should derive the same address, got %s and %s", a.Address(), b.Address())
	}
}

func TestNewFromMnemonicVariesByAccount(t *testing.T) {
	a, err := NewFromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewFromMnemonic(testMnemonic, "", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Address().Equals(b.Address()) {
		t.Fatal("different account indices should derive different addresses")
	}
}

func TestNewFromMnemonicVariesByPassphrase(t *testing.T) {
	a, err := NewFromMnemonic(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewFromMnemonic(testMnemonic, "extra word", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Address().Equals(b.Address()) {
		t.Fatal("a passphrase should change the derived address")
	}
}
