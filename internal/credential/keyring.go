package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const (
	defaultServiceName = "qlvb-notify"
	defaultTokenKey    = "access_token"
)

// Options 系统钥匙串参数
type Options struct {
	ServiceName string
	FileDir     string
	TokenKey    string
}

// Store 在系统钥匙串里保存后端 token
type Store struct {
	ring     keyring.Keyring
	tokenKey string
}

// Open returns a store backed by the OS keyring, falling back to an encrypted file.
func Open(opts Options) (*Store, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaultServiceName
	}
	if opts.FileDir == "" {
		opts.FileDir = "~/.config/" + opts.ServiceName + "/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: opts.ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  opts.FileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(opts.ServiceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring, opts.TokenKey), nil
}

// New wraps an existing keyring (tests use keyring.NewArrayKeyring).
func New(ring keyring.Keyring, tokenKey string) *Store {
	if tokenKey == "" {
		tokenKey = defaultTokenKey
	}
	return &Store{ring: ring, tokenKey: tokenKey}
}

// Token 没有保存过时返回空串和 nil
func (s *Store) Token() (string, error) {
	item, err := s.ring.Get(s.tokenKey)
	if err == keyring.ErrKeyNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", s.tokenKey, err)
	}
	return string(item.Data), nil
}

func (s *Store) SetToken(token string) error {
	err := s.ring.Set(keyring.Item{
		Key:  s.tokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", s.tokenKey, err)
	}
	return nil
}

func (s *Store) DeleteToken() error {
	err := s.ring.Remove(s.tokenKey)
	if err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("deleting credential %q: %w", s.tokenKey, err)
	}
	return nil
}
