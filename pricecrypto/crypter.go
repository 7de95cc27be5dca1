package pricecrypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/openbidder/bidserver/errortypes"
)

// Token layout: initialization vector, encrypted price, signature.
const (
	IVSize        = 16
	PriceSize     = 8
	SignatureSize = 4
	TokenSize     = IVSize + PriceSize + SignatureSize
)

// Crypter encrypts and decrypts clearing prices exchanged with an exchange.
//
// The price is XORed with a pad derived from the encryption key and the iv, and signed with the
// integrity key over the price, the iv and a caller-supplied binding. A token only decrypts under the
// binding it was created with.
//
// A Crypter is immutable and safe for concurrent use.
type Crypter struct {
	encryptionKey []byte
	integrityKey  []byte
	clock         clock.Clock
	random        io.Reader
}

// Option configures a Crypter.
type Option func(*Crypter)

// WithClock sets the clock used for the timestamp half of generated ivs.
func WithClock(c clock.Clock) Option {
	return func(cr *Crypter) {
		cr.clock = c
	}
}

// WithRandom sets the source of the random half of generated ivs.
func WithRandom(r io.Reader) Option {
	return func(cr *Crypter) {
		cr.random = r
	}
}

// New builds a Crypter from raw key bytes. The keys are copied.
func New(encryptionKey, integrityKey []byte, opts ...Option) (*Crypter, error) {
	if len(encryptionKey) == 0 {
		return nil, errors.New("price encryption key is empty")
	}
	if len(integrityKey) == 0 {
		return nil, errors.New("price integrity key is empty")
	}
	c := &Crypter{
		encryptionKey: append([]byte(nil), encryptionKey...),
		integrityKey:  append([]byte(nil), integrityKey...),
		clock:         clock.New(),
		random:        rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromBase64 builds a Crypter from base64 keys, as exchanges hand them out. Both the web-safe and
// the standard alphabet are accepted, with or without padding.
func NewFromBase64(encryptionKey, integrityKey string, opts ...Option) (*Crypter, error) {
	ekey, err := DecodeKey(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid price encryption key: %w", err)
	}
	ikey, err := DecodeKey(integrityKey)
	if err != nil {
		return nil, fmt.Errorf("invalid price integrity key: %w", err)
	}
	return New(ekey, ikey, opts...)
}

// DecodeKey decodes a base64 key in any of the usual alphabets.
func DecodeKey(key string) ([]byte, error) {
	return decodeBase64(strings.TrimSpace(key))
}

// Encrypt returns the token for a price in micros, bound to binding.
func (c *Crypter) Encrypt(micros int64, binding []byte) (string, error) {
	iv, err := c.newIV()
	if err != nil {
		return "", err
	}
	return c.EncryptWithIV(micros, iv, binding)
}

// EncryptWithIV is Encrypt with a caller-chosen iv. Reusing an iv across prices leaks their XOR.
func (c *Crypter) EncryptWithIV(micros int64, iv, binding []byte) (string, error) {
	if len(iv) != IVSize {
		return "", fmt.Errorf("iv must be %d bytes, got %d", IVSize, len(iv))
	}
	if micros < 0 {
		return "", fmt.Errorf("price must not be negative: %d", micros)
	}

	price := make([]byte, PriceSize)
	binary.BigEndian.PutUint64(price, uint64(micros))

	token := make([]byte, 0, TokenSize)
	token = append(token, iv...)
	pad := c.pad(iv)
	for i := 0; i < PriceSize; i++ {
		token = append(token, price[i]^pad[i])
	}
	token = append(token, c.signature(price, iv, binding)...)

	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Decrypt returns the price in micros carried by token.
//
// It fails with *errortypes.MalformedToken when the token is not a well-formed token and with
// *errortypes.IntegrityCheckFailed when its signature does not match, including a binding mismatch.
func (c *Crypter) Decrypt(token string, binding []byte) (int64, error) {
	raw, err := decodeBase64(strings.TrimSpace(token))
	if err != nil {
		return 0, &errortypes.MalformedToken{Message: fmt.Sprintf("price token is not valid base64: %v", err)}
	}
	if len(raw) != TokenSize {
		return 0, &errortypes.MalformedToken{Message: fmt.Sprintf("price token must be %d bytes, got %d", TokenSize, len(raw))}
	}

	iv := raw[:IVSize]
	encrypted := raw[IVSize : IVSize+PriceSize]
	signature := raw[IVSize+PriceSize:]

	pad := c.pad(iv)
	price := make([]byte, PriceSize)
	for i := range price {
		price[i] = encrypted[i] ^ pad[i]
	}

	if !hmac.Equal(signature, c.signature(price, iv, binding)) {
		return 0, &errortypes.IntegrityCheckFailed{Message: "price token signature mismatch"}
	}

	micros := binary.BigEndian.Uint64(price)
	if micros > math.MaxInt64 {
		return 0, &errortypes.IntegrityCheckFailed{Message: "price out of range"}
	}
	return int64(micros), nil
}

// Timestamp returns the seconds and microseconds encoded in the iv of a token made by Encrypt.
func Timestamp(token string) (seconds, micros int64, err error) {
	raw, err := decodeBase64(strings.TrimSpace(token))
	if err != nil || len(raw) != TokenSize {
		return 0, 0, &errortypes.MalformedToken{Message: "price token is malformed"}
	}
	return int64(binary.BigEndian.Uint32(raw[0:4])), int64(binary.BigEndian.Uint32(raw[4:8])), nil
}

func (c *Crypter) newIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	now := c.clock.Now()
	binary.BigEndian.PutUint32(iv[0:4], uint32(now.Unix()))
	binary.BigEndian.PutUint32(iv[4:8], uint32(now.Nanosecond()/1000))
	if _, err := io.ReadFull(c.random, iv[8:]); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}
	return iv, nil
}

func (c *Crypter) pad(iv []byte) []byte {
	mac := hmac.New(sha1.New, c.encryptionKey)
	mac.Write(iv)
	return mac.Sum(nil)[:PriceSize]
}

func (c *Crypter) signature(price, iv, binding []byte) []byte {
	mac := hmac.New(sha1.New, c.integrityKey)
	mac.Write(price)
	mac.Write(iv)
	mac.Write(binding)
	return mac.Sum(nil)[:SignatureSize]
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}

// MaxUnits bounds the prices, in currency units, that MicrosFromUnits converts without overflow.
const MaxUnits = 1e12

// MicrosFromUnits converts a price in currency units to micros, rounding to the nearest micro.
func MicrosFromUnits(units float64) int64 {
	return int64(math.Round(units * 1e6))
}

// UnitsFromMicros converts a price in micros to currency units.
func UnitsFromMicros(micros int64) float64 {
	return float64(micros) / 1e6
}
