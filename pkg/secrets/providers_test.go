package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretValueAPI struct {
	out   *secretsmanager.GetSecretValueOutput
	err   error
	input *secretsmanager.GetSecretValueInput
}

func (f *fakeSecretValueAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestAWSProvider_Fetch(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		api := &fakeSecretValueAPI{out: &secretsmanager.GetSecretValueOutput{
			SecretString: aws.String(`{"secret_key":"sk_live"}`),
			VersionId:    aws.String("v3"),
		}}
		secret, err := (&awsProvider{api: api}).Fetch(context.Background(), Reference{Path: "prod/stripe", Version: "v3"})
		require.NoError(t, err)

		assert.Equal(t, "sk_live", secret.Data["secret_key"])
		assert.Equal(t, "v3", secret.Version)
		assert.Equal(t, "v3", aws.ToString(api.input.VersionId))
	})

	t.Run("plain string", func(t *testing.T) {
		api := &fakeSecretValueAPI{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("hunter2")}}
		secret, err := (&awsProvider{api: api}).Fetch(context.Background(), Reference{Path: "jwt"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"value": "hunter2"}, secret.Data)
	})

	t.Run("missing", func(t *testing.T) {
		api := &fakeSecretValueAPI{err: &types.ResourceNotFoundException{Message: aws.String("gone")}}
		_, err := (&awsProvider{api: api}).Fetch(context.Background(), Reference{Path: "jwt"})
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

type fakeKV struct {
	secret  *vault.KVSecret
	err     error
	path    string
	version int
}

func (f *fakeKV) Get(_ context.Context, path string) (*vault.KVSecret, error) {
	f.path = path
	return f.secret, f.err
}

func (f *fakeKV) GetVersion(_ context.Context, path string, version int) (*vault.KVSecret, error) {
	f.path, f.version = path, version
	return f.secret, f.err
}

func newFakeVault(kv *fakeKV) (*vaultProvider, *string) {
	var usedMount string
	return &vaultProvider{mount: "secret", kv: func(m string) kvReader {
		usedMount = m
		return kv
	}}, &usedMount
}

func TestVaultProvider_Fetch(t *testing.T) {
	kv := &fakeKV{secret: &vault.KVSecret{
		Data:            map[string]interface{}{"groq_key": "gsk_1", "retries": 3},
		VersionMetadata: &vault.KVVersionMetadata{Version: 7},
	}}
	p, mount := newFakeVault(kv)

	secret, err := p.Fetch(context.Background(), Reference{Mount: "kv", Path: "data/gigmarket/api", Version: "7"})
	require.NoError(t, err)

	assert.Equal(t, "kv", *mount)
	assert.Equal(t, "gigmarket/api", kv.path)
	assert.Equal(t, 7, kv.version)
	assert.Equal(t, "gsk_1", secret.Data["groq_key"])
	assert.Equal(t, "3", secret.Data["retries"])
	assert.Equal(t, "7", secret.Version)
}

func TestVaultProvider_Errors(t *testing.T) {
	p, mount := newFakeVault(&fakeKV{err: vault.ErrSecretNotFound})

	_, err := p.Fetch(context.Background(), Reference{Path: "gigmarket/api"})
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, "secret", *mount)

	_, err = p.Fetch(context.Background(), Reference{Path: "gigmarket/api", Version: "latest"})
	assert.ErrorIs(t, err, ErrInvalidReference)

	p, _ = newFakeVault(&fakeKV{err: errors.New("permission denied")})
	_, err = p.Fetch(context.Background(), Reference{Path: "gigmarket/api"})
	assert.ErrorContains(t, err, "permission denied")
}

func TestNewProviders_RequireSettings(t *testing.T) {
	_, err := newVaultProvider(VaultConfig{Address: "http://vault:8200"})
	assert.Error(t, err)

	_, err = newAWSProvider(context.Background(), AWSConfig{})
	assert.Error(t, err)
}

func TestFileProvider(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "jwt"), []byte("signing-key\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "stripe"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(base, "stripe", "secret_key"), []byte("sk_test"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "stripe", "..data"), []byte("ignored"), 0o600))

	p, err := newFileProvider(FileConfig{BasePath: base})
	require.NoError(t, err)
	m := newManager(p, 0)

	value, err := m.Resolve(context.Background(), "jwt", "file://jwt", "")
	require.NoError(t, err)
	assert.Equal(t, "signing-key", value)

	value, err = m.Resolve(context.Background(), "stripe", "file://stripe#secret_key", "")
	require.NoError(t, err)
	assert.Equal(t, "sk_test", value)

	secret, err := p.Fetch(context.Background(), Reference{Path: "stripe"})
	require.NoError(t, err)
	assert.NotContains(t, secret.Data, "..data")

	_, err = p.Fetch(context.Background(), Reference{Path: "missing"})
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = p.Fetch(context.Background(), Reference{Path: "../outside"})
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = newFileProvider(FileConfig{BasePath: filepath.Join(base, "jwt")})
	assert.Error(t, err)
}
