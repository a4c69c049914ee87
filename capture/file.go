package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Ext is appended to keys that do not carry it already.
const Ext = ".fcap"

// FileStore keeps captures as files under Dir.
type FileStore struct {
	Dir string
}

// path maps a slash separated key to a file under Dir. Keys that are
// absolute or climb out of Dir are rejected.
func (s FileStore) path(key string) (string, error) {
	local := filepath.FromSlash(key)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("invalid capture key %q", key)
	}
	if filepath.Ext(local) != Ext {
		local += Ext
	}
	return filepath.Join(s.Dir, local), nil
}

func (s FileStore) Load(_ context.Context, key string) (*Capture, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}

func (s FileStore) Save(_ context.Context, key string, c *Capture) (err error) {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err = Encode(w, c); err != nil {
		return err
	}
	return w.Flush()
}
