package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig points the provider at a KV v2 engine.
type VaultConfig struct {
	Address   string
	Token     string
	Namespace string
	MountPath string
}

// kvReader is the part of vault's KVv2 client the provider reads through.
type kvReader interface {
	Get(ctx context.Context, path string) (*vault.KVSecret, error)
	GetVersion(ctx context.Context, path string, version int) (*vault.KVSecret, error)
}

type vaultProvider struct {
	mount string
	kv    func(mount string) kvReader
}

func newVaultProvider(cfg VaultConfig) (provider, error) {
	if cfg.Address == "" || cfg.Token == "" {
		return nil, errors.New("secrets: vault needs an address and a token")
	}

	clientCfg := vault.DefaultConfig()
	clientCfg.Address = cfg.Address
	client, err := vault.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	mount := strings.Trim(cfg.MountPath, "/")
	if mount == "" {
		mount = "secret"
	}
	return &vaultProvider{
		mount: mount,
		kv:    func(m string) kvReader { return client.KVv2(m) },
	}, nil
}

func (v *vaultProvider) Name() ProviderType { return ProviderVault }

func (v *vaultProvider) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	mount := v.mount
	if ref.Mount != "" {
		mount = ref.Mount
	}
	// KV v2 paths are sometimes copied from the HTTP API with a data/ prefix
	path := strings.TrimPrefix(strings.TrimPrefix(ref.Path, "data/"), "metadata/")
	if path == "" {
		return Secret{}, ErrInvalidReference
	}

	var (
		kvSecret *vault.KVSecret
		err      error
	)
	if ref.Version == "" {
		kvSecret, err = v.kv(mount).Get(ctx, path)
	} else {
		version, convErr := strconv.Atoi(ref.Version)
		if convErr != nil {
			return Secret{}, fmt.Errorf("%w: vault version %q", ErrInvalidReference, ref.Version)
		}
		kvSecret, err = v.kv(mount).GetVersion(ctx, path, version)
	}
	if err != nil {
		var respErr *vault.ResponseError
		if errors.Is(err, vault.ErrSecretNotFound) || (errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound) {
			return Secret{}, fmt.Errorf("%w: %s/%s", ErrKeyNotFound, mount, path)
		}
		return Secret{}, fmt.Errorf("secrets: vault read %s/%s: %w", mount, path, err)
	}

	out := Secret{Data: make(map[string]string, len(kvSecret.Data))}
	for k, raw := range kvSecret.Data {
		out.Data[k] = fmt.Sprint(raw)
	}
	if kvSecret.VersionMetadata != nil {
		out.Version = strconv.Itoa(kvSecret.VersionMetadata.Version)
	}
	return out, nil
}
