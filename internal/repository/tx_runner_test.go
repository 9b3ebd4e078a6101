//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safecampus/sentra/internal/domain"
	"github.com/safecampus/sentra/internal/service"
)

func TestTxRunner_WithTx(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestPool(ctx, t)
	defer cleanup()

	runner := NewTxRunner(pool)
	docRepo := NewDocumentRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)
	user := createTestUser(ctx, t, pool)

	t.Run("commits document and job together", func(t *testing.T) {
		doc := newTestDocument(user.ID)
		jobID := uuid.NewString()

		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return err
			}
			return repos.EmbeddingJobs().Create(ctx, domain.NewEmbeddingJob(jobID, doc.ID, time.Now().UTC()))
		})
		require.NoError(t, err)

		_, err = docRepo.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		_, err = jobRepo.GetByID(ctx, jobID)
		require.NoError(t, err)
	})

	t.Run("rolls everything back when the callback fails", func(t *testing.T) {
		doc := newTestDocument(user.ID)

		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.Error(t, err)

		_, err = docRepo.GetByID(ctx, doc.ID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "nothing persists after rollback")
	})
}
