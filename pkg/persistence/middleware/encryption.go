package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
	"github.com/civicchat/orchestra/pkg/ports"
)

// envelopePrefix marks an encrypted message content.
const envelopePrefix = "enc:v1:"

// ErrNotEncrypted is returned when a stored message lacks the encryption envelope.
var ErrNotEncrypted = errors.New("message is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next ports.ThreadStore
	// keys[0] seals; every key is tried in order when opening.
	keys []cipher.AEAD
}

// NewEncryptionMiddleware creates a middleware that encrypts every message
// content with AES-GCM. Roles and thread ids stay readable.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	active, err := newAEAD(config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}
	keys := []cipher.AEAD{active}
	for i, k := range config.FallbackKeys {
		aead, err := newAEAD(k)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		keys = append(keys, aead)
	}
	return func(next ports.ThreadStore) ports.ThreadStore {
		return &encryptionMiddleware{next: next, keys: keys}
	}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, errors.New("must be 32 bytes (AES-256)")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (m *encryptionMiddleware) Save(ctx context.Context, id string, messages []domain.Message) error {
	sealed := make([]domain.Message, len(messages))
	for i, msg := range messages {
		ciphertext, err := m.seal([]byte(msg.Content))
		if err != nil {
			return fmt.Errorf("failed to encrypt message: %w", err)
		}
		sealed[i] = domain.Message{
			Role:    msg.Role,
			Content: envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext),
		}
	}
	return m.next.Save(ctx, id, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) ([]domain.Message, error) {
	sealed, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Message, len(sealed))
	for i, msg := range sealed {
		encoded, ok := strings.CutPrefix(msg.Content, envelopePrefix)
		if !ok {
			// Fail secure: plain content means the store was written without encryption.
			return nil, fmt.Errorf("thread %s message %d: %w", id, i, ErrNotEncrypted)
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}
		plain, err := m.open(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt thread %s: %w", id, err)
		}
		out[i] = domain.Message{Role: msg.Role, Content: string(plain)}
	}
	return out, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// seal prepends a random nonce to the ciphertext.
func (m *encryptionMiddleware) seal(plaintext []byte) ([]byte, error) {
	aead := m.keys[0]
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open tries the active key, then the fallbacks in order.
func (m *encryptionMiddleware) open(ciphertext []byte) ([]byte, error) {
	for _, aead := range m.keys {
		n := aead.NonceSize()
		if len(ciphertext) < n {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := aead.Open(nil, ciphertext[:n], ciphertext[n:], nil); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}
