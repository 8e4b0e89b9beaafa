package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/gigmarket/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProviderType enumerates supported secret backends.
type ProviderType string

const (
	ProviderNone  ProviderType = ""
	ProviderVault ProviderType = "vault"
	ProviderAWS   ProviderType = "aws"
	ProviderFile  ProviderType = "file"
)

var (
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	ErrInvalidReference      = errors.New("secrets: invalid reference")
	ErrKeyNotFound           = errors.New("secrets: key not found")
)

// Reference locates a secret. The raw form is
// [provider://][mount::]path[@version][#key].
type Reference struct {
	Name     string
	Path     string
	Mount    string
	Key      string
	Version  string
	Provider ProviderType
}

// CacheKey identifies the payload a reference points at. Key is not part of
// it since one payload serves every key.
func (r Reference) CacheKey() string {
	return strings.Join([]string{string(r.Provider), r.Mount, r.Path, r.Version}, "|")
}

// ParseReference converts a raw reference string into a Reference.
func ParseReference(name, raw string) (Reference, error) {
	ref := Reference{Name: name}
	rest := strings.TrimSpace(raw)

	if scheme, after, ok := strings.Cut(rest, "://"); ok && scheme != "" {
		ref.Provider, rest = ProviderType(scheme), after
	}
	if before, key, ok := strings.Cut(rest, "#"); ok {
		rest, ref.Key = before, strings.TrimSpace(key)
	}
	if before, version, ok := strings.Cut(rest, "@"); ok {
		rest, ref.Version = before, strings.TrimSpace(version)
	}
	if mount, after, ok := strings.Cut(rest, "::"); ok {
		ref.Mount, rest = strings.Trim(mount, "/ "), after
	}

	ref.Path = strings.Trim(strings.TrimSpace(rest), "/")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}
	return ref, nil
}

// Secret is a resolved secret payload.
type Secret struct {
	Data      map[string]string
	Version   string
	FetchedAt time.Time
}

// Value returns a single non-empty entry from the payload.
func (s Secret) Value(key string) (string, bool) {
	val, ok := s.Data[key]
	return val, ok && val != ""
}

// Config selects and configures the backend.
type Config struct {
	Provider ProviderType
	CacheTTL time.Duration
	Vault    VaultConfig
	AWS      AWSConfig
	File     FileConfig
}

type provider interface {
	Name() ProviderType
	Fetch(ctx context.Context, ref Reference) (Secret, error)
}

// Manager resolves secret references with a ttl cache.
type Manager struct {
	provider provider
	cacheTTL time.Duration

	mu       sync.RWMutex
	cache    map[string]cachedSecret
	inFlight singleflight.Group
}

type cachedSecret struct {
	secret    Secret
	expiresAt time.Time
}

// NewManager creates a Manager for cfg.Provider.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	var (
		prov provider
		err  error
	)

	switch cfg.Provider {
	case ProviderNone:
		return nil, ErrProviderNotConfigured
	case ProviderVault:
		prov, err = newVaultProvider(cfg.Vault)
	case ProviderAWS:
		prov, err = newAWSProvider(ctx, cfg.AWS)
	case ProviderFile:
		prov, err = newFileProvider(cfg.File)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return newManager(prov, cfg.CacheTTL), nil
}

func newManager(prov provider, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Manager{provider: prov, cacheTTL: ttl, cache: make(map[string]cachedSecret)}
}

// GetSecret resolves the full payload for ref, serving repeats from cache
// until the ttl runs out.
func (m *Manager) GetSecret(ctx context.Context, ref Reference) (Secret, error) {
	if ref.Path == "" {
		return Secret{}, ErrInvalidReference
	}
	if ref.Provider != ProviderNone && ref.Provider != m.provider.Name() {
		return Secret{}, fmt.Errorf("secrets: reference provider %q does not match %q", ref.Provider, m.provider.Name())
	}
	if secret, ok := m.cached(ref); ok {
		return secret, nil
	}

	// concurrent misses for the same payload share one provider call
	v, err, _ := m.inFlight.Do(ref.CacheKey(), func() (interface{}, error) {
		return m.fetch(ctx, ref)
	})
	if err != nil {
		return Secret{}, err
	}
	return v.(Secret), nil
}

func (m *Manager) fetch(ctx context.Context, ref Reference) (Secret, error) {
	log := logger.WithContext(ctx).With(
		zap.String("secret_name", ref.Name),
		zap.String("provider", string(m.provider.Name())),
	)
	secret, err := m.provider.Fetch(ctx, ref)
	if err != nil {
		log.Warn("secret fetch failed", zap.Error(err))
		return Secret{}, err
	}
	secret.FetchedAt = time.Now().UTC()
	m.store(ref, secret)

	log.Info("secret fetched", zap.String("version", secret.Version))
	return secret, nil
}

func (m *Manager) cached(ref Reference) (Secret, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[ref.CacheKey()]
	if !ok || time.Now().After(entry.expiresAt) {
		return Secret{}, false
	}
	return entry.secret, true
}

func (m *Manager) store(ref Reference, secret Secret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[ref.CacheKey()] = cachedSecret{secret: secret, expiresAt: time.Now().Add(m.cacheTTL)}
}

// GetString returns ref.Key from the referenced secret, or "value" when the
// reference names no key.
func (m *Manager) GetString(ctx context.Context, ref Reference) (string, error) {
	secret, err := m.GetSecret(ctx, ref)
	if err != nil {
		return "", err
	}

	key := ref.Key
	if key == "" {
		key = "value"
	}
	if value, ok := secret.Value(key); ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// Resolve returns the secret behind raw when set, otherwise fallback. A nil
// manager with a non-empty raw reference is an error.
func (m *Manager) Resolve(ctx context.Context, name, raw, fallback string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	if m == nil {
		return "", fmt.Errorf("%w: %s has a reference but no provider", ErrProviderNotConfigured, name)
	}
	ref, err := ParseReference(name, raw)
	if err != nil {
		return "", err
	}
	return m.GetString(ctx, ref)
}
