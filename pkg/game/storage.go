package game

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/quasilyte/gdata/v2"
)

// 存储键
const (
	storageObject = "scrapline"
	saveKey       = "save"
	settingsKey   = "settings"
)

// Storage 不透明的键值持久化存储，每个键对应一个字符串值
type Storage interface {
	// Exists 检查键是否存在，无副作用
	Exists(key string) bool
	// Load 读取键的值，键不存在时返回 os.ErrNotExist
	Load(key string) ([]byte, error)
	// Save 写入键的值
	Save(key string, data []byte) error
}

// GdataStorage 基于 gdata 的跨平台存储
type GdataStorage struct {
	manager *gdata.Manager
	object  string
}

// NewGdataStorage 创建 gdata 存储
//
// 参数：
//   - manager: gdata 管理器，不能为 nil
//   - object: gdata 对象名，所有键作为该对象的属性保存
func NewGdataStorage(manager *gdata.Manager, object string) *GdataStorage {
	return &GdataStorage{manager: manager, object: object}
}

// Exists 检查属性是否存在
func (s *GdataStorage) Exists(key string) bool {
	return s.manager.ObjectPropExists(s.object, key)
}

// Load 读取属性
func (s *GdataStorage) Load(key string) ([]byte, error) {
	if !s.Exists(key) {
		return nil, os.ErrNotExist
	}
	data, err := s.manager.LoadObjectProp(s.object, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", s.object, key, err)
	}
	return data, nil
}

// Save 写入属性
func (s *GdataStorage) Save(key string, data []byte) error {
	if err := s.manager.SaveObjectProp(s.object, key, data); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", s.object, key, err)
	}
	return nil
}

// MemoryStorage 内存存储
// 用于 gdata 不可用时的降级模式，以及测试
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage 创建空的内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Exists 检查键是否存在
func (s *MemoryStorage) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// Load 读取键的值（副本）
func (s *MemoryStorage) Load(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Save 写入键的值（保存副本）
func (s *MemoryStorage) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(data))
	copy(v, data)
	s.data[key] = v
	return nil
}

// OpenStorage 打开持久化存储
//
// 优先使用 gdata；初始化失败时退化为内存存储，游戏仍可运行，只是不会持久化。
//
// 参数：
//   - appName: gdata 应用名（决定存档目录）
func OpenStorage(appName string) Storage {
	manager, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		log.Printf("[Storage] Warning: gdata unavailable: %v (falling back to memory storage)", err)
		return NewMemoryStorage()
	}
	return NewGdataStorage(manager, storageObject)
}
