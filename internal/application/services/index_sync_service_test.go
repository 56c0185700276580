package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/healthcarecommons/internal/application/services"
	"github.com/zatekoja/healthcarecommons/internal/domain/entities"
	"github.com/zatekoja/healthcarecommons/internal/domain/providers"
	"github.com/zatekoja/healthcarecommons/internal/domain/repositories"
)

func TestIndexSyncService_Sync(t *testing.T) {
	t.Run("indexes every provider", func(t *testing.T) {
		source := new(MockProviderCatalog)
		index := new(MockProviderSearchIndex)
		service := services.NewIndexSyncService(source, index, nil)

		catalog := searchCatalog()
		index.On("InitSchema", mock.Anything).Return(nil)
		source.On("ListProviders", mock.Anything, repositories.ProviderFilter{}).
			Return(append(catalog, nil), nil)
		index.On("Index", mock.Anything, mock.Anything).Return(nil)

		n, err := service.Sync(context.Background(), false)

		require.NoError(t, err)
		assert.Equal(t, len(catalog), n)
		index.AssertNumberOfCalls(t, "Index", len(catalog))
		index.AssertNotCalled(t, "Reset", mock.Anything)
	})

	t.Run("reset drops the index first", func(t *testing.T) {
		source := new(MockProviderCatalog)
		index := new(MockProviderSearchIndex)
		service := services.NewIndexSyncService(source, index, nil)

		index.On("Reset", mock.Anything).Return(nil)
		source.On("ListProviders", mock.Anything, mock.Anything).Return([]*entities.Provider{}, nil)

		n, err := service.Sync(context.Background(), true)

		require.NoError(t, err)
		assert.Zero(t, n)
		index.AssertNotCalled(t, "InitSchema", mock.Anything)
	})

	t.Run("partial failures are reported", func(t *testing.T) {
		source := new(MockProviderCatalog)
		index := new(MockProviderSearchIndex)
		service := services.NewIndexSyncService(source, index, nil)

		catalog := searchCatalog()
		index.On("InitSchema", mock.Anything).Return(nil)
		source.On("ListProviders", mock.Anything, mock.Anything).Return(catalog, nil)
		index.On("Index", mock.Anything, catalog[0]).Return(errors.New("bad document"))
		index.On("Index", mock.Anything, mock.Anything).Return(nil)

		n, err := service.Sync(context.Background(), false)

		require.Error(t, err)
		assert.Equal(t, len(catalog)-1, n)
		assert.Contains(t, err.Error(), "1 of 4")
	})

	t.Run("source failure aborts", func(t *testing.T) {
		source := new(MockProviderCatalog)
		index := new(MockProviderSearchIndex)
		service := services.NewIndexSyncService(source, index, nil)

		index.On("InitSchema", mock.Anything).Return(nil)
		source.On("ListProviders", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := service.Sync(context.Background(), false)

		assert.ErrorContains(t, err, "db down")
		index.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
	})
}

func TestIndexSyncService_HandleEvent(t *testing.T) {
	index := new(MockProviderSearchIndex)
	service := services.NewIndexSyncService(nil, index, nil)
	provider := &entities.Provider{ID: "p1", Name: "Dr. A", Specialty: "Cardiologist"}

	index.On("Index", mock.Anything, provider).Return(nil).Once()
	index.On("Delete", mock.Anything, "p2").Return(nil).Once()

	ctx := context.Background()
	require.NoError(t, service.HandleEvent(ctx, entities.NewProviderEvent("p1", entities.ProviderEventTypeUpserted, provider)))
	require.NoError(t, service.HandleEvent(ctx, entities.NewProviderEvent("p2", entities.ProviderEventTypeDeleted, nil)))
	assert.Error(t, service.HandleEvent(ctx, entities.NewProviderEvent("p3", entities.ProviderEventTypeUpserted, nil)))
	assert.Error(t, service.HandleEvent(ctx, &entities.ProviderEvent{ID: "e", EventType: "provider.renamed"}))
	index.AssertExpectations(t)
}

func TestIndexSyncService_Watch(t *testing.T) {
	t.Run("applies events until the subscription closes", func(t *testing.T) {
		index := new(MockProviderSearchIndex)
		bus := new(MockEventBus)
		service := services.NewIndexSyncService(nil, index, bus)

		ch := make(chan *entities.ProviderEvent, 3)
		bus.On("Subscribe", mock.Anything, providers.EventChannelProviderUpdates).
			Return((<-chan *entities.ProviderEvent)(ch), nil)
		index.On("Delete", mock.Anything, "p1").Return(errors.New("not indexed"))
		index.On("Delete", mock.Anything, "p2").Return(nil)

		ch <- entities.NewProviderEvent("p1", entities.ProviderEventTypeDeleted, nil)
		ch <- nil
		ch <- entities.NewProviderEvent("p2", entities.ProviderEventTypeDeleted, nil)
		close(ch)

		done := make(chan error, 1)
		go func() { done <- service.Watch(context.Background()) }()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not return after the subscription closed")
		}
		index.AssertExpectations(t)
	})

	t.Run("subscribe failure", func(t *testing.T) {
		bus := new(MockEventBus)
		service := services.NewIndexSyncService(nil, new(MockProviderSearchIndex), bus)
		bus.On("Subscribe", mock.Anything, mock.Anything).Return(nil, errors.New("closed"))

		assert.Error(t, service.Watch(context.Background()))
	})

	t.Run("requires an event bus", func(t *testing.T) {
		service := services.NewIndexSyncService(nil, new(MockProviderSearchIndex), nil)

		assert.Error(t, service.Watch(context.Background()))
	})
}
