package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileConfig points the provider at a directory of mounted secrets, such as
// a Kubernetes secret volume.
type FileConfig struct {
	BasePath string
}

type fileProvider struct {
	base string
}

func newFileProvider(cfg FileConfig) (provider, error) {
	base := cfg.BasePath
	if base == "" {
		base = "/var/run/secrets/gigmarket"
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("secrets: mount %s: %w", base, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets: mount %s is not a directory", base)
	}
	return &fileProvider{base: filepath.Clean(base)}, nil
}

func (f *fileProvider) Name() ProviderType { return ProviderFile }

// Fetch reads ref.Path under the mount. A file is returned under "value"; a
// directory exposes each regular file it holds under the file's name.
func (f *fileProvider) Fetch(_ context.Context, ref Reference) (Secret, error) {
	target := filepath.Join(f.base, filepath.FromSlash(ref.Path))
	if target != f.base && !strings.HasPrefix(target, f.base+string(os.PathSeparator)) {
		return Secret{}, ErrInvalidReference
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return Secret{}, fmt.Errorf("%w: %s", ErrKeyNotFound, ref.Path)
	}
	if err != nil {
		return Secret{}, fmt.Errorf("secrets: stat %s: %w", ref.Path, err)
	}

	if !info.IsDir() {
		value, err := readTrimmed(target)
		if err != nil {
			return Secret{}, err
		}
		return Secret{Data: map[string]string{"value": value}}, nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return Secret{}, fmt.Errorf("secrets: list %s: %w", ref.Path, err)
	}
	data := make(map[string]string, len(entries))
	for _, e := range entries {
		// kubernetes projects keys through ..data symlinks; skip the bookkeeping entries
		if e.IsDir() || strings.HasPrefix(e.Name(), "..") {
			continue
		}
		value, err := readTrimmed(filepath.Join(target, e.Name()))
		if err != nil {
			return Secret{}, err
		}
		data[e.Name()] = value
	}
	return Secret{Data: data}, nil
}

func readTrimmed(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secrets: read %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(string(raw)), nil
}
