// Package jwks encodes and decodes RSA JSON Web Key Sets.
package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

type Key struct {
	Kid    string
	Public *rsa.PublicKey
}

type set struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Marshal renders keys as an RS256 signing key set.
func Marshal(keys ...Key) ([]byte, error) {
	enc := base64.RawURLEncoding
	out := set{Keys: make([]jwk, 0, len(keys))}
	for _, k := range keys {
		if k.Public == nil {
			return nil, fmt.Errorf("jwks: key %q has no public key", k.Kid)
		}
		out.Keys = append(out.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: k.Kid,
			N:   enc.EncodeToString(k.Public.N.Bytes()),
			// e is a big-endian unsigned int.
			E: enc.EncodeToString(big.NewInt(int64(k.Public.E)).Bytes()),
		})
	}
	return json.Marshal(out)
}

// Parse decodes the RSA keys of a key set by kid. Non-RSA and incomplete entries are skipped.
func Parse(b []byte) (map[string]*rsa.PublicKey, error) {
	var s set
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	out := make(map[string]*rsa.PublicKey, len(s.Keys))
	for _, k := range s.Keys {
		if k.Kty != "RSA" || k.Kid == "" || k.N == "" || k.E == "" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := new(big.Int).SetBytes(eb).Int64()
		if e <= 0 || e > int64(^uint(0)>>1) {
			return nil, fmt.Errorf("invalid jwk exponent")
		}
		out[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(e),
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable jwks keys")
	}
	return out, nil
}
