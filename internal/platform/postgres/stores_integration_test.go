//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/postgres"
	"github.com/phrazzld/learnplan-api/internal/store"
	"github.com/phrazzld/learnplan-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func storesFor(tx *sql.Tx) store.Stores {
	return store.Stores{
		Plans:         postgres.NewPostgresPlanStore(tx, nil),
		Topics:        postgres.NewPostgresTopicStore(tx, nil),
		Enrollments:   postgres.NewPostgresEnrollmentStore(tx, nil),
		Users:         postgres.NewPostgresUserStore(tx, bcrypt.MinCost, nil),
		Notifications: postgres.NewPostgresNotificationStore(tx, nil),
	}
}

func createUser(t *testing.T, s store.Stores, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name+"-"+uuid.NewString()[:8]+"@example.com", name+uuid.NewString()[:8], "correct horse battery")
	require.NoError(t, err)
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

// expectFailure runs a statement that must fail without aborting tx.
func expectFailure(t *testing.T, tx *sql.Tx, target error, fn func() error) {
	t.Helper()
	_, err := tx.Exec(`SAVEPOINT expect_failure`)
	require.NoError(t, err)
	assert.ErrorIs(t, fn(), target)
	_, err = tx.Exec(`ROLLBACK TO SAVEPOINT expect_failure`)
	require.NoError(t, err)
}

func TestStores_EnrollmentLifecycle(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		s := storesFor(tx)
		owner := createUser(t, s, "owner")
		learner := createUser(t, s, "learner")

		plan, err := domain.NewPlan(owner.ID, domain.PlanFields{
			Title:      "Distributed systems",
			Visibility: domain.VisibilityPublic,
			Tags:       []string{"Raft", "consensus"},
		})
		require.NoError(t, err)
		require.NoError(t, s.Plans.Create(ctx, plan))

		var topics []*domain.Topic
		for _, title := range []string{"Logs", "Leaders", "Snapshots"} {
			idx, err := s.Topics.NextOrderIndex(ctx, plan.ID)
			require.NoError(t, err)
			topic, err := domain.NewTopic(plan.ID, idx, domain.TopicFields{Title: title})
			require.NoError(t, err)
			require.NoError(t, s.Topics.Create(ctx, topic))
			topics = append(topics, topic)
		}

		dup, err := domain.NewTopic(plan.ID, 1, domain.TopicFields{Title: "Clash"})
		require.NoError(t, err)
		expectFailure(t, tx, store.ErrOrderIndexTaken, func() error { return s.Topics.Create(ctx, dup) })

		enrollment, err := domain.NewEnrollment(plan.ID, learner.ID)
		require.NoError(t, err)
		require.NoError(t, s.Enrollments.Create(ctx, enrollment))

		again, err := domain.NewEnrollment(plan.ID, learner.ID)
		require.NoError(t, err)
		expectFailure(t, tx, store.ErrEnrollmentExists, func() error { return s.Enrollments.Create(ctx, again) })

		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, s.Enrollments.SetTopicCompletion(ctx, enrollment.ID, topics[0].ID, true, at))
		require.NoError(t, s.Enrollments.SetTopicCompletion(ctx, enrollment.ID, topics[0].ID, true, at))
		require.NoError(t, s.Enrollments.SetTopicCompletion(ctx, enrollment.ID, topics[2].ID, true, at))

		got, err := s.Enrollments.GetByPlanAndLearner(ctx, plan.ID, learner.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{topics[0].ID, topics[2].ID}, got.CompletedTopicIDs)
		assert.True(t, at.Equal(got.LastActivityAt))

		// deleting a topic drops it from completion sets
		require.NoError(t, s.Topics.Delete(ctx, topics[2].ID))
		require.NoError(t, s.Enrollments.PruneTopic(ctx, topics[2].ID))
		next, err := s.Topics.NextOrderIndex(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, next)

		participants, err := s.Enrollments.ListParticipants(ctx, plan.ID)
		require.NoError(t, err)
		require.Len(t, participants, 1)
		assert.Equal(t, learner.Username, participants[0].Username)
		assert.Equal(t, []uuid.UUID{topics[0].ID}, participants[0].Enrollment.CompletedTopicIDs)

		reloaded, err := s.Plans.GetForUpdate(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, reloaded.EnrollmentCount)
		assert.Equal(t, []string{"raft", "consensus"}, reloaded.Tags)

		found, err := s.Plans.Discover(ctx, store.DiscoverQuery{Mode: store.DiscoverSearch, Query: "RAFT", Size: 50})
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(found))
		for _, p := range found {
			ids = append(ids, p.ID)
		}
		assert.Contains(t, ids, plan.ID)

		require.NoError(t, s.Plans.Delete(ctx, plan.ID))
		_, err = s.Enrollments.GetByID(ctx, enrollment.ID)
		assert.ErrorIs(t, err, store.ErrEnrollmentNotFound)
		_, err = s.Topics.GetByID(ctx, topics[0].ID)
		assert.ErrorIs(t, err, store.ErrTopicNotFound)
	})
}

func TestStores_UserUniqueness(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		s := storesFor(tx)
		first := createUser(t, s, "ada")

		clash, err := domain.NewUser(first.Email, "someone-else", "correct horse battery")
		require.NoError(t, err)
		expectFailure(t, tx, store.ErrEmailExists, func() error { return s.Users.Create(ctx, clash) })

		got, err := s.Users.GetByEmail(ctx, first.Email)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
	})
}
