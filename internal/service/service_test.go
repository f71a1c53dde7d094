package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/intern-service/internal/config"
	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/events"
	"github.com/spec-kit/intern-service/internal/testutils"
)

type harness struct {
	stores      *testutils.Stores
	locker      *testutils.Locker
	revocations *testutils.RevocationStore
	dispatcher  events.Dispatcher
	published   []events.Event
	identity    *IdentityService
	catalog     *CatalogService
	ledger      *AssignmentService
}

func testConfig() config.Config {
	return config.Config{
		Auth:       config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4},
		Assignment: config.AssignmentConfig{LockTTLSeconds: 5},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		stores:      testutils.NewStores(),
		locker:      testutils.NewLocker(),
		revocations: testutils.NewRevocationStore(),
		dispatcher:  events.NewInMemoryDispatcher(),
	}
	for _, eventType := range []events.EventType{
		events.EventTaskCreated,
		events.EventTaskDeleted,
		events.EventTasksAssigned,
		events.EventTaskSubmitted,
		events.EventTaskGraded,
	} {
		h.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			h.published = append(h.published, e)
			return nil
		})
	}

	cfg := testConfig()
	h.identity = NewIdentityService(cfg, IdentityDependencies{
		UserRepo:       h.stores.Users,
		AssignmentRepo: h.stores.Assignments,
		Revocations:    h.revocations,
		Locker:         h.locker,
		Logger:         zap.NewNop(),
	})
	h.catalog = NewCatalogService(CatalogDependencies{
		TaskRepo:   h.stores.Tasks,
		Dispatcher: h.dispatcher,
	})
	h.ledger = NewAssignmentService(cfg, AssignmentDependencies{
		UserRepo:       h.stores.Users,
		Catalog:        h.catalog,
		AssignmentRepo: h.stores.Assignments,
		Locker:         h.locker,
		Dispatcher:     h.dispatcher,
	})
	h.ledger.now = h.stores.Clock.Now
	return h
}

func (h *harness) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := h.identity.Register(context.Background(), RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  "pa55word",
	})
	require.NoError(t, err)
	return user
}

func (h *harness) addTask(t *testing.T, title string, d domain.Domain, level int) *domain.Task {
	t.Helper()
	task, err := h.catalog.CreateTask(context.Background(), nil, CreateTaskInput{Title: title, Domain: d, Level: level})
	require.NoError(t, err)
	return task
}

func (h *harness) eventTypes() []events.EventType {
	out := make([]events.EventType, 0, len(h.published))
	for _, e := range h.published {
		out = append(out, e.Type)
	}
	return out
}
