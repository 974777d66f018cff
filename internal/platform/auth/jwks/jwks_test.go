package jwks

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

func TestMarshalParse(t *testing.T) {
	t.Parallel()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := Marshal(Key{Kid: "kid-1", Public: &priv.PublicKey})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	keys, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := keys["kid-1"]
	if got == nil || got.N.Cmp(priv.PublicKey.N) != 0 || got.E != priv.PublicKey.E {
		t.Fatalf("round trip mismatch")
	}
}

func TestParse_SkipsUnusableKeys(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"keys":[{"kty":"EC","kid":"x","n":"a","e":"b"}]}`)); err == nil {
		t.Fatalf("expected error when no RSA keys are usable")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
