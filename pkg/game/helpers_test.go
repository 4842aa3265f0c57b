package game

import (
	"errors"
	"testing"
	"time"

	"github.com/decker502/scrapline/pkg/config"
	"github.com/decker502/scrapline/pkg/economy"
)

// testEpoch 测试时钟起点
var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingStorage 读写都失败的存储
type failingStorage struct {
	exists bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStorage) Exists(string) bool { return s.exists }

func (s *failingStorage) Load(string) ([]byte, error) { return nil, errDiskFull }

func (s *failingStorage) Save(string, []byte) error { return errDiskFull }

func loadTestCatalog(t *testing.T) *config.EconomyCatalog {
	t.Helper()
	catalog, err := config.LoadEconomyCatalog("../../data/economy.yaml")
	if err != nil {
		t.Fatalf("Failed to load economy catalog: %v", err)
	}
	return catalog
}

// newTestStore 基于内存存储和假时钟创建 SaveStore
func newTestStore(t *testing.T) (*SaveStore, *MemoryStorage, *fakeClock) {
	t.Helper()
	storage := NewMemoryStorage()
	clock := newFakeClock()
	store := NewSaveStore(storage, loadTestCatalog(t), WithClock(clock.Now))
	return store, storage, clock
}

// newTestResolver 创建 SaveStore 与 UpgradeResolver
func newTestResolver(t *testing.T) (*UpgradeResolver, *SaveStore) {
	t.Helper()
	catalog := loadTestCatalog(t)
	store := NewSaveStore(NewMemoryStorage(), catalog, WithClock(newFakeClock().Now))
	return NewUpgradeResolver(catalog, economy.NewDifficultyModel(catalog), store), store
}

func ptr[T any](v T) *T { return &v }
