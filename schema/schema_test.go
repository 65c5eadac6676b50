package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleskop/fieldbridge/errors"
)

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(TypeString, TypeString))
	assert.True(t, Compatible(TypeString, TypeText))
	assert.True(t, Compatible(TypeText, TypeString))
	assert.False(t, Compatible(TypeString, TypeNumber))
	assert.False(t, Compatible(TypeDate, TypeText))
	assert.False(t, Compatible(TypeArray, TypeString))
}

func TestFieldAllows(t *testing.T) {
	open := Field{ID: "title", Type: TypeString}
	assert.True(t, open.Allows("anything"))

	status := Field{ID: "status", Type: TypeString, AllowedValues: []string{"Ready", "Draft"}}
	assert.True(t, status.Allows("Ready"))
	assert.False(t, status.Allows("ACTIVE"))
}

type stubCatalogProvider struct {
	fields []Field
	err    error
	calls  int
}

func (s *stubCatalogProvider) FieldCatalog(ctx context.Context, providerID, projectID string) ([]Field, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.fields, nil
}

func TestCatalogCacheFetchesOnce(t *testing.T) {
	provider := &stubCatalogProvider{fields: []Field{
		{ID: "title", Name: "Title", Type: TypeString, Required: true},
		{ID: "steps", Name: "Steps", Type: TypeArray},
	}}
	cache := NewCatalogCache(provider)

	cat1, err := cache.Get(context.Background(), "testrail", "TR-1")
	require.NoError(t, err)
	cat2, err := cache.Get(context.Background(), "testrail", "TR-1")
	require.NoError(t, err)

	assert.Same(t, cat1, cat2)
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, cat1.Required(), 1)
}

func TestCatalogCacheFailureIsNotCached(t *testing.T) {
	provider := &stubCatalogProvider{err: errors.New("connection refused")}
	cache := NewCatalogCache(provider)

	_, err := cache.Get(context.Background(), "zephyr", "Z-1")
	require.Error(t, err)
	assert.True(t, errors.IsCatalogUnavailable(err))

	// Provider recovers; the next Get retries instead of serving the failure.
	provider.err = nil
	provider.fields = []Field{{ID: "key", Name: "Key", Type: TypeString}}
	cat, err := cache.Get(context.Background(), "zephyr", "Z-1")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
	assert.Len(t, cat.Fields, 1)
}

func TestCatalogCacheInvalidate(t *testing.T) {
	provider := &stubCatalogProvider{fields: []Field{{ID: "a", Name: "A", Type: TypeString}}}
	cache := NewCatalogCache(provider)

	_, err := cache.Get(context.Background(), "testrail", "TR-1")
	require.NoError(t, err)
	cache.Invalidate("testrail", "TR-1")
	_, err = cache.Get(context.Background(), "testrail", "TR-1")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}
