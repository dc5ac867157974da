package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/partystacker/internal/model"
	"github.com/iliyamo/partystacker/internal/repository"
	"github.com/iliyamo/partystacker/internal/repository/memory"
)

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) FetchEvent(ctx context.Context, id uint64) (*model.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func TestResolveLocalEvent(t *testing.T) {
	store := memory.NewEventRepo()
	require.NoError(t, store.Create(context.Background(), &model.Event{ID: "E1", Title: "Local"}))
	mirror := new(MockMirror)

	e, err := repository.NewEventResolver(store, mirror).Resolve(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, "Local", e.Title)
	mirror.AssertNotCalled(t, "FetchEvent", mock.Anything, mock.Anything)
}

func TestResolveMirrorsChainEvent(t *testing.T) {
	store := memory.NewEventRepo()
	mirror := new(MockMirror)
	mirror.On("FetchEvent", mock.Anything, uint64(12)).
		Return(&model.Event{Title: "On Chain", Tiers: model.Tiers{General: model.Tier{Price: 5, Available: 10}}}, nil).Once()
	r := repository.NewEventResolver(store, mirror)

	e, err := r.Resolve(context.Background(), "chain-12")
	require.NoError(t, err)
	assert.Equal(t, "chain-12", e.ID)
	require.NotNil(t, e.OnChainID)
	assert.Equal(t, uint64(12), *e.OnChainID)
	assert.Equal(t, model.EventUpcoming, e.Status)

	// second lookup is served from the store
	e, err = r.Resolve(context.Background(), "chain-12")
	require.NoError(t, err)
	assert.Equal(t, "On Chain", e.Title)
	mirror.AssertExpectations(t)
}

func TestResolveUnknown(t *testing.T) {
	store := memory.NewEventRepo()
	mirror := new(MockMirror)
	mirror.On("FetchEvent", mock.Anything, uint64(3)).Return(nil, repository.ErrEventNotFound)
	r := repository.NewEventResolver(store, mirror)

	for _, id := range []string{"E404", "chain-abc", "chain-3"} {
		_, err := r.Resolve(context.Background(), id)
		assert.ErrorIs(t, err, repository.ErrEventNotFound, id)
	}

	_, err := repository.NewEventResolver(store, nil).Resolve(context.Background(), "chain-3")
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}
