package secrets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    ProviderType
	secrets map[string]Secret
	calls   int
	err     error
}

func (f *fakeProvider) Name() ProviderType { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	f.calls++
	if f.err != nil {
		return Secret{}, f.err
	}
	s, ok := f.secrets[ref.Path]
	if !ok {
		return Secret{}, errors.New("not found")
	}
	return s, nil
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		raw     string
		want    Reference
		wantErr bool
	}{
		{raw: "gigmarket/jwt", want: Reference{Path: "gigmarket/jwt"}},
		{raw: "vault://kv::gigmarket/api#groq_key", want: Reference{Provider: ProviderVault, Mount: "kv", Path: "gigmarket/api", Key: "groq_key"}},
		{raw: "aws://prod/stripe@v3#secret_key", want: Reference{Provider: ProviderAWS, Path: "prod/stripe", Version: "v3", Key: "secret_key"}},
		{raw: "  ", wantErr: true},
		{raw: "aws://#key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref, err := ParseReference("test", tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			tt.want.Name = "test"
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestManager_CachesSecrets(t *testing.T) {
	prov := &fakeProvider{name: ProviderVault, secrets: map[string]Secret{
		"gigmarket/api": {Data: map[string]string{"groq_key": "gsk-123"}},
	}}
	m := newManager(prov, 0)

	ref := Reference{Name: "ai", Path: "gigmarket/api", Key: "groq_key"}
	for i := 0; i < 3; i++ {
		value, err := m.GetString(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "gsk-123", value)
	}
	assert.Equal(t, 1, prov.calls)
}

func TestManager_GetString_MissingKey(t *testing.T) {
	prov := &fakeProvider{name: ProviderAWS, secrets: map[string]Secret{
		"prod/stripe": {Data: map[string]string{"value": "sk_live"}},
	}}
	m := newManager(prov, 0)

	value, err := m.GetString(context.Background(), Reference{Path: "prod/stripe"})
	require.NoError(t, err)
	assert.Equal(t, "sk_live", value)

	_, err = m.GetString(context.Background(), Reference{Path: "prod/stripe", Key: "other"})
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestManager_ProviderMismatch(t *testing.T) {
	m := newManager(&fakeProvider{name: ProviderAWS}, 0)
	_, err := m.GetSecret(context.Background(), Reference{Path: "x", Provider: ProviderVault})
	assert.Error(t, err)
}

func TestManager_Resolve(t *testing.T) {
	prov := &fakeProvider{name: ProviderAWS, secrets: map[string]Secret{
		"jwt": {Data: map[string]string{"value": "from-store"}},
	}}
	m := newManager(prov, 0)

	value, err := m.Resolve(context.Background(), "jwt", "", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	value, err = m.Resolve(context.Background(), "jwt", "aws://jwt", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-store", value)

	var nilManager *Manager
	_, err = nilManager.Resolve(context.Background(), "jwt", "aws://jwt", "")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestNewManager_NoProvider(t *testing.T) {
	_, err := NewManager(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

type gatedProvider struct {
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedProvider) Name() ProviderType { return ProviderVault }

func (g *gatedProvider) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	g.calls.Add(1)
	<-g.release
	return Secret{Data: map[string]string{"value": "s3cret"}}, nil
}

func TestManager_ConcurrentMissesShareFetch(t *testing.T) {
	prov := &gatedProvider{release: make(chan struct{})}
	m := newManager(prov, 0)
	ref := Reference{Name: "jwt", Path: "gigmarket/jwt"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := m.GetString(context.Background(), ref)
			assert.NoError(t, err)
			assert.Equal(t, "s3cret", value)
		}()
	}
	require.Eventually(t, func() bool { return prov.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(prov.release)
	wg.Wait()

	assert.Equal(t, int32(1), prov.calls.Load())
}
