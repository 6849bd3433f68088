package cache

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// NamespaceLoader loads the namespaces visible to the current user
type NamespaceLoader func(ctx context.Context) ([]string, error)

// NamespaceCache remembers the namespaces of each user so the cluster is only asked once.
// If Dir is set the namespaces are also kept in a file per user for Timeout
type NamespaceCache struct {
	Dir     string
	Timeout time.Duration
	Loader  NamespaceLoader

	lock    sync.Mutex
	entries map[string][]string
}

// NewNamespaceCache creates a cache using the loader and the optional cache directory
func NewNamespaceCache(dir string, loader NamespaceLoader) *NamespaceCache {
	return &NamespaceCache{
		Dir:     dir,
		Timeout: DefaultTimeout,
		Loader:  loader,
		entries: map[string][]string{},
	}
}

// Namespaces returns the sorted namespaces of the user
func (c *NamespaceCache) Namespaces(ctx context.Context, user string) ([]string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.entries == nil {
		c.entries = map[string][]string{}
	}
	if answer, ok := c.entries[user]; ok {
		return answer, nil
	}
	if c.Loader == nil {
		return nil, errors.Errorf("no namespace loader configured")
	}

	data, err := LoadCacheData(c.fileName(user), c.Timeout, func() ([]byte, error) {
		names, err := c.Loader(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load the namespaces for user %s", user)
		}
		sort.Strings(names)
		return yaml.Marshal(names)
	})
	if err != nil {
		return nil, err
	}

	var answer []string
	err = yaml.Unmarshal(data, &answer)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse the cached namespaces of user %s", user)
	}
	c.entries[user] = answer
	return answer, nil
}

// Invalidate forgets the namespaces of the user so the next call reloads them
func (c *NamespaceCache) Invalidate(user string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, user)

	fileName := c.fileName(user)
	if fileName != "" {
		_ = os.Remove(fileName)
		_ = os.Remove(fileName + "_last_time_check")
	}
}

func (c *NamespaceCache) fileName(user string) string {
	if c.Dir == "" {
		return ""
	}
	if user == "" {
		user = "default"
	}
	return filepath.Join(c.Dir, "namespaces-"+unsafeFileChars.ReplaceAllString(user, "_")+".yaml")
}
