// Package password hashes and verifies user passwords with Argon2id.
//
// Hashes are stored in the PHC string format
// ($argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>) so every hash carries its own
// salt and cost parameters and can be verified after the defaults change.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Upper bounds for parameters read back from stored hashes.
const (
	maxMemory      = 1024 * 1024
	maxIterations  = 64
	maxKeyLength   = 1024
	encodedParts   = 6
	encodedVariant = "argon2id"
)

var errInvalidHash = errors.New("invalid argon2id hash")

type Hasher struct {
	params Params
	rand   io.Reader
}

func NewHasher(params Params) *Hasher {
	return &Hasher{params: params, rand: rand.Reader}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		encodedVariant, argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches hashed. Any malformed hash yields false.
func (h *Hasher) Verify(plaintext, hashed string) bool {
	params, salt, key, err := decode(hashed)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

func decode(hashed string) (params Params, salt, key []byte, err error) {
	parts := strings.Split(hashed, "$")
	if len(parts) != encodedParts || parts[0] != "" || parts[1] != encodedVariant {
		return params, nil, nil, errInvalidHash
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, errInvalidHash
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, errInvalidHash
	}
	if params.Memory == 0 || params.Memory > maxMemory ||
		params.Iterations == 0 || params.Iterations > maxIterations ||
		params.Parallelism == 0 {
		return params, nil, nil, errInvalidHash
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(salt) == 0 {
		return params, nil, nil, errInvalidHash
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(key) == 0 || len(key) > maxKeyLength {
		return params, nil, nil, errInvalidHash
	}
	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))
	return params, salt, key, nil
}
