package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/cobrify/stock-service/internal/domain"
	testhelpers "github.com/cobrify/stock-service/pkg/testing"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Addr: "localhost:6379"}.Enabled())
	assert.True(t, Config{URL: "redis://localhost:6379/0"}.Enabled())
}

func TestNewWarehouseCache_InvalidURL(t *testing.T) {
	_, err := NewWarehouseCache(context.Background(), Config{URL: "://nope"})
	assert.Error(t, err)
}

type WarehouseCacheSuite struct {
	suite.Suite
	ctx       context.Context
	container *testhelpers.RedisContainer
	cache     *WarehouseCache
}

func TestWarehouseCacheSuite(t *testing.T) {
	testhelpers.SkipIfShort(t)
	suite.Run(t, new(WarehouseCacheSuite))
}

func (s *WarehouseCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	container, err := testhelpers.NewRedisContainer(s.ctx)
	s.Require().NoError(err)
	s.container = container

	c, err := NewWarehouseCache(s.ctx, Config{Addr: container.Addr, TTL: time.Minute})
	s.Require().NoError(err)
	s.cache = c
}

func (s *WarehouseCacheSuite) TearDownSuite() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.container != nil {
		_ = s.container.Close(s.ctx)
	}
}

func (s *WarehouseCacheSuite) SetupTest() {
	s.Require().NoError(s.cache.InvalidateAll(s.ctx))
}

func (s *WarehouseCacheSuite) TestMissThenHit() {
	_, ok, err := s.cache.Get(s.ctx, "biz-1")
	s.Require().NoError(err)
	s.False(ok)

	main, err := domain.NewWarehouse("biz-1", "Principal", "Av. Lima 123", "", true)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Set(s.ctx, "biz-1", []*domain.Warehouse{main}))

	cached, ok, err := s.cache.Get(s.ctx, "biz-1")
	s.Require().NoError(err)
	s.True(ok)
	s.Require().Len(cached, 1)
	s.Equal(main.ID, cached[0].ID)
	s.True(cached[0].IsDefault)

	ttl, err := s.cache.client.TTL(s.ctx, warehouseKey("biz-1")).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *WarehouseCacheSuite) TestEmptyListIsAHit() {
	s.Require().NoError(s.cache.Set(s.ctx, "biz-empty", nil))

	cached, ok, err := s.cache.Get(s.ctx, "biz-empty")
	s.Require().NoError(err)
	s.True(ok)
	s.Empty(cached)
}

func (s *WarehouseCacheSuite) TestInvalidateIsPerBusiness() {
	w, err := domain.NewWarehouse("biz-1", "Principal", "", "", true)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Set(s.ctx, "biz-1", []*domain.Warehouse{w}))
	s.Require().NoError(s.cache.Set(s.ctx, "biz-2", []*domain.Warehouse{w}))

	s.Require().NoError(s.cache.Invalidate(s.ctx, "biz-1"))

	_, ok, err := s.cache.Get(s.ctx, "biz-1")
	s.Require().NoError(err)
	s.False(ok)
	_, ok, err = s.cache.Get(s.ctx, "biz-2")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *WarehouseCacheSuite) TestInvalidateAll() {
	t := s.T()
	for _, biz := range []string{"a", "b", "c"} {
		require.NoError(t, s.cache.Set(s.ctx, biz, nil))
	}

	require.NoError(t, s.cache.InvalidateAll(s.ctx))

	for _, biz := range []string{"a", "b", "c"} {
		_, ok, err := s.cache.Get(s.ctx, biz)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
