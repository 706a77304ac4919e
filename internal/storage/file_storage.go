// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStorage 提供项目文档的文件存储服务
// 所有写入都是整文件覆盖：临时文件 + rename
type FileStorage struct {
	BaseDir string

	// 文件级别锁 path -> *sync.RWMutex
	fileLocks sync.Map

	// 简单读缓存，写入时失效
	cache       map[string]*cacheEntry
	cacheMutex  sync.RWMutex
	cacheExpiry time.Duration
}

type cacheEntry struct {
	data      []byte
	timestamp time.Time
}

// NewFileStorage 创建文件存储服务
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	return &FileStorage{
		BaseDir:     baseDir,
		cache:       make(map[string]*cacheEntry),
		cacheExpiry: 5 * time.Minute,
	}, nil
}

// 获取文件锁
func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// SaveFile 覆盖写入文件，必要时创建目录
func (fs *FileStorage) SaveFile(dirPath, filename string, content []byte) error {
	fullDirPath := filepath.Join(fs.BaseDir, dirPath)
	fullPath := filepath.Join(fullDirPath, filename)

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(fullDirPath, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	// 原子性文件写入
	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("保存临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("保存文件失败: %w", err)
	}

	fs.invalidateCache(fullPath)
	return nil
}

// SaveJSONFile 序列化为带缩进的JSON并写入
func (fs *FileStorage) SaveJSONFile(dirPath, filename string, data interface{}) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	return fs.SaveFile(dirPath, filename, content)
}

// LoadFile 读取文件内容
func (fs *FileStorage) LoadFile(dirPath, filename string) ([]byte, error) {
	fullPath := filepath.Join(fs.BaseDir, dirPath, filename)

	fs.cacheMutex.RLock()
	if entry, exists := fs.cache[fullPath]; exists && time.Since(entry.timestamp) < fs.cacheExpiry {
		fs.cacheMutex.RUnlock()
		return entry.data, nil
	}
	fs.cacheMutex.RUnlock()

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	fs.cacheMutex.Lock()
	fs.cache[fullPath] = &cacheEntry{data: content, timestamp: time.Now()}
	fs.cacheMutex.Unlock()

	return content, nil
}

// DirExists 检查目录是否存在
func (fs *FileStorage) DirExists(dirPath string) bool {
	info, err := os.Stat(filepath.Join(fs.BaseDir, dirPath))
	return err == nil && info.IsDir()
}

// FileExists 检查文件是否存在
func (fs *FileStorage) FileExists(dirPath, filename string) bool {
	_, err := os.Stat(filepath.Join(fs.BaseDir, dirPath, filename))
	return err == nil
}

// DeleteDir 删除目录及其全部内容，目录不存在时返回 os.ErrNotExist
func (fs *FileStorage) DeleteDir(dirPath string) error {
	fullPath := filepath.Join(fs.BaseDir, dirPath)

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("删除目录失败: %w", err)
	}

	fs.invalidateCachePrefix(fullPath)
	return nil
}

// ListDirs 列出存储根目录下的所有子目录名
func (fs *FileStorage) ListDirs() ([]string, error) {
	entries, err := os.ReadDir(fs.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

// invalidateCache 清除指定路径的缓存
func (fs *FileStorage) invalidateCache(path string) {
	fs.cacheMutex.Lock()
	defer fs.cacheMutex.Unlock()
	delete(fs.cache, path)
}

// invalidateCachePrefix 清除指定前缀的所有缓存条目
func (fs *FileStorage) invalidateCachePrefix(prefix string) {
	fs.cacheMutex.Lock()
	defer fs.cacheMutex.Unlock()
	for key := range fs.cache {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(fs.cache, key)
		}
	}
}
