package itemstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Songmu/flextime"
	"github.com/google/uuid"
)

const tempFilePrefix = ".itemstore-"

// FileSystemClientConfig provides configuration for FileSystemClient
type FileSystemClientConfig struct {
	BasePath string
	// PageSize caps a listing page when ListOptions.MaxKeys is zero (default DefaultPageSize)
	PageSize int32
	Logger   *slog.Logger // Optional logger, defaults to slog.Default()
}

// FileSystemClient implements Client on a local directory.
// Keys are "/" separated paths below BasePath.
type FileSystemClient struct {
	basePath string
	pageSize int32
	logger   *slog.Logger
	mu       sync.RWMutex
}

var _ Client = (*FileSystemClient)(nil)

// NewFileSystemClient creates a new FileSystemClient, creating BasePath if needed
func NewFileSystemClient(config FileSystemClientConfig) (*FileSystemClient, error) {
	if config.BasePath == "" {
		return nil, errors.New("BasePath is required")
	}
	basePath, err := filepath.Abs(strings.TrimPrefix(config.BasePath, "file://"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FileSystemClient{
		basePath: basePath,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func (c *FileSystemClient) Kind() BackendKind {
	return KindFileSystem
}

func (c *FileSystemClient) Address() string {
	return "file://" + filepath.ToSlash(c.basePath) + "/"
}

func (c *FileSystemClient) Verify(ctx context.Context) error {
	info, err := os.Stat(c.basePath)
	if err != nil {
		return NewError("verify", "", c.basePath, err)
	}
	if !info.IsDir() {
		return NewError("verify", "", c.basePath, errors.New("not a directory"))
	}
	return nil
}

func (c *FileSystemClient) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := c.itemPath(key)
	if err != nil {
		return false, NewError("exists", "", key, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, NewError("exists", "", key, err)
	}
	return !info.IsDir(), nil
}

func (c *FileSystemClient) ReadItem(ctx context.Context, key string) ([]byte, error) {
	filePath, err := c.itemPath(key)
	if err != nil {
		return nil, NewError("read", "", key, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewError("read", "", key, NotFound(err))
		}
		return nil, NewError("read", "", key, err)
	}
	return data, nil
}

func (c *FileSystemClient) ReadTextItem(ctx context.Context, key string) (string, error) {
	data, err := c.ReadItem(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *FileSystemClient) ReadAsStream(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := c.itemPath(key)
	if err != nil {
		return nil, NewError("read-stream", "", key, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewError("read-stream", "", key, NotFound(err))
		}
		return nil, NewError("read-stream", "", key, err)
	}
	return file, nil
}

func (c *FileSystemClient) WriteItem(ctx context.Context, key string, content []byte) error {
	filePath, err := c.itemPath(key)
	if err != nil {
		return NewError("write", "", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return NewError("write", "", key, fmt.Errorf("failed to create item directory: %w", err))
	}

	// write to a sibling temp file and rename, so readers never see a partial item
	tmpPath := filepath.Join(filepath.Dir(filePath), tempFilePrefix+uuid.Must(uuid.NewV7()).String()+".tmp")
	if err := os.WriteFile(tmpPath, content, 0600); err != nil {
		return NewError("write", "", key, err)
	}
	now := flextime.Now()
	if err := os.Chtimes(tmpPath, now, now); err != nil {
		_ = os.Remove(tmpPath)
		return NewError("write", "", key, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return NewError("write", "", key, err)
	}

	c.logger.DebugContext(ctx, "item written", "path", filePath, "size", len(content))
	return nil
}

func (c *FileSystemClient) WriteTextItem(ctx context.Context, key string, text string) error {
	return c.WriteItem(ctx, key, []byte(text))
}

func (c *FileSystemClient) DeleteItem(ctx context.Context, key string) error {
	filePath, err := c.itemPath(key)
	if err != nil {
		return NewError("delete", "", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewError("delete", "", key, err)
	}
	return nil
}

func (c *FileSystemClient) DeleteFolder(ctx context.Context, prefix string) error {
	folder, err := CleanFolderPrefix(prefix)
	if err != nil {
		return NewError("delete-folder", "", prefix, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if folder == "" {
		entries, err := os.ReadDir(c.basePath)
		if err != nil {
			return NewError("delete-folder", "", prefix, err)
		}
		for _, entry := range entries {
			if err := os.RemoveAll(filepath.Join(c.basePath, entry.Name())); err != nil {
				c.logger.WarnContext(ctx, "failed to delete item", "path", entry.Name(), "error", err)
			}
		}
		return nil
	}

	dirPath, err := c.itemPath(folder)
	if err != nil {
		return NewError("delete-folder", "", prefix, err)
	}
	if dirPath == c.basePath {
		return NewError("delete-folder", "", prefix, fmt.Errorf("%w: folder prefix %q names the base directory", ErrInvalidKey, prefix))
	}
	// a plain item named like the folder is not under "<folder>/"
	if info, err := os.Stat(dirPath); err != nil || !info.IsDir() {
		return nil
	}
	if err := os.RemoveAll(dirPath); err != nil {
		return NewError("delete-folder", "", prefix, err)
	}
	c.logger.DebugContext(ctx, "folder deleted", "path", dirPath)
	return nil
}

func (c *FileSystemClient) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.listWithoutLock(prefix)
}

func (c *FileSystemClient) ListPage(ctx context.Context, prefix string, opts ListOptions) (*ListPage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	objects, err := c.listWithoutLock(prefix)
	if err != nil {
		return nil, err
	}

	if opts.ContinuationToken != "" {
		start, found := slices.BinarySearchFunc(objects, opts.ContinuationToken, func(o ObjectInfo, token string) int {
			return strings.Compare(o.Key, token)
		})
		if found {
			start++
		}
		objects = objects[start:]
	}

	limit := opts.MaxKeys
	if limit <= 0 {
		limit = c.pageSize
	}
	page := &ListPage{Objects: objects}
	if len(objects) > int(limit) {
		page.Objects = objects[:limit]
		page.IsTruncated = true
		page.NextContinuationToken = page.Objects[len(page.Objects)-1].Key
	}
	return page, nil
}

// listWithoutLock returns every item whose key starts with prefix, sorted by key
func (c *FileSystemClient) listWithoutLock(prefix string) ([]ObjectInfo, error) {
	// walk from the deepest directory the prefix fully names
	dir := "."
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir = path.Clean(prefix[:i])
	}
	if !filepath.IsLocal(filepath.FromSlash(dir)) {
		return nil, NewError("list", "", prefix, ErrInvalidKey)
	}
	root := filepath.Join(c.basePath, filepath.FromSlash(dir))

	objects := []ObjectInfo{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempFilePrefix) {
			return nil
		}
		relPath, err := filepath.Rel(c.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(relPath)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, NewError("list", "", prefix, err)
	}

	slices.SortFunc(objects, func(a, b ObjectInfo) int {
		return strings.Compare(a.Key, b.Key)
	})
	return objects, nil
}

// itemPath maps a key to a path below basePath, rejecting keys that escape it
func (c *FileSystemClient) itemPath(key string) (string, error) {
	local := filepath.FromSlash(key)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(c.basePath, local), nil
}
