package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
	"github.com/felixgeelhaar/taskhub/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}

func TestStore_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Find(ctx, "tasks", query.Query{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Save(ctx, "tasks", store.Document{"name": "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
