// Package memory provides an in-process implementation of the store
// interfaces for development and tests.
//
// A single mutex guards all state. WithinTx holds it for the whole unit of
// work and stages changes on a deep copy that replaces the live state only
// when the callback succeeds, so units of work on different plans serialize
// instead of running in parallel. Stores obtained from DB.Stores lock per
// call.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/domain"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type state struct {
	users         map[uuid.UUID]*domain.User
	plans         map[uuid.UUID]*domain.Plan
	topics        map[uuid.UUID]*domain.Topic
	enrollments   map[uuid.UUID]*domain.Enrollment
	notifications []*domain.Notification
}

func newState() *state {
	return &state{
		users:       make(map[uuid.UUID]*domain.User),
		plans:       make(map[uuid.UUID]*domain.Plan),
		topics:      make(map[uuid.UUID]*domain.Topic),
		enrollments: make(map[uuid.UUID]*domain.Enrollment),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, u := range s.users {
		c.users[id] = cloneUser(u)
	}
	for id, p := range s.plans {
		c.plans[id] = clonePlan(p)
	}
	for id, t := range s.topics {
		cp := *t
		c.topics[id] = &cp
	}
	for id, e := range s.enrollments {
		c.enrollments[id] = e.Clone()
	}
	c.notifications = append(c.notifications, s.notifications...)
	return c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func clonePlan(p *domain.Plan) *domain.Plan {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	if p.StartDate != nil {
		d := *p.StartDate
		c.StartDate = &d
	}
	if p.EndDate != nil {
		d := *p.EndDate
		c.EndDate = &d
	}
	return &c
}

// DB is an in-memory database shared by all memory stores.
type DB struct {
	mu         sync.Mutex
	live       *state
	bcryptCost int
	logger     *slog.Logger
}

// NewDB creates an empty in-memory database. Passwords are hashed with
// bcryptCost, or bcrypt.DefaultCost when the value is out of range.
func NewDB(bcryptCost int, logger *slog.Logger) *DB {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{
		live:       newState(),
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "memory_db")),
	}
}

// Ensure DB implements store.TxManager interface
var _ store.TxManager = (*DB)(nil)

// Stores returns stores that lock the database for each call.
func (db *DB) Stores() store.Stores {
	return newStores(&session{db: db})
}

// WithinTx implements store.TxManager.WithinTx.
func (db *DB) WithinTx(ctx context.Context, fn store.UnitOfWork) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	staged := db.live.clone()
	sess := &session{db: db, staged: staged}

	defer func() {
		if p := recover(); p != nil {
			logger.FromContextOrDefault(ctx, db.logger).Error("discarded unit of work after panic",
				slog.Any("panic", p))
			// ALLOW-PANIC: Propagating caught panic from unit of work
			panic(p)
		}
	}()

	if err := fn(ctx, newStores(sess)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db.live = staged
	return nil
}

// session resolves which state a store operates on. Inside a unit of work
// the staged copy is used without further locking.
type session struct {
	db     *DB
	staged *state
}

func (s *session) acquire() (*state, func()) {
	if s.staged != nil {
		return s.staged, func() {}
	}
	s.db.mu.Lock()
	return s.db.live, s.db.mu.Unlock
}

func newStores(sess *session) store.Stores {
	return store.Stores{
		Plans:         &PlanStore{sess: sess},
		Topics:        &TopicStore{sess: sess},
		Enrollments:   &EnrollmentStore{sess: sess},
		Users:         &UserStore{sess: sess},
		Notifications: &NotificationStore{sess: sess},
	}
}
