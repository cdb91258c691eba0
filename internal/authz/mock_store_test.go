package authz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// mockStore is an in-memory Store with call counters and error injection,
// shared across the package tests.
type mockStore struct {
	mu sync.Mutex

	assignments []RoleAssignment
	rolePerms   map[string][]string
	roleNames   map[string]string
	tours       []Tour
	events      []Event
	audits      []AuditRecord
	nextID      int

	resolveCalls    int
	assignmentCalls int
	auditCalls      int
	listTourCalls   int
	listEventCalls  int
	eventTourCalls  int

	resolveErr    error
	insertErr     error
	deactivateErr error
	auditErr      error
	listToursErr  error
	eventTourErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		rolePerms: make(map[string][]string),
		roleNames: make(map[string]string),
	}
}

func (m *mockStore) addRole(roleID, name string, perms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleNames[roleID] = name
	m.rolePerms[roleID] = perms
}

func (m *mockStore) grant(userID, roleID string, tourID *string) RoleAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a := RoleAssignment{
		ID:         fmt.Sprintf("assignment-%d", m.nextID),
		UserID:     userID,
		RoleID:     roleID,
		RoleName:   m.roleNames[roleID],
		TourID:     tourID,
		IsActive:   true,
		AssignedAt: time.Now().UTC(),
	}
	m.assignments = append(m.assignments, a)
	return a
}

func (m *mockStore) addTour(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tours = append(m.tours, Tour{ID: id, Name: name, Status: "active"})
}

func (m *mockStore) addEvent(id, tourID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{ID: id, TourID: tourID, Name: name, Date: time.Now().UTC()})
}

func (m *mockStore) ResolvePermissions(_ context.Context, userID string, tourID *string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveCalls++
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	seen := make(map[string]struct{})
	var perms []string
	for _, a := range m.assignments {
		if a.UserID != userID || !a.IsActive {
			continue
		}
		if !scopeMatches(a.TourID, tourID) {
			continue
		}
		for _, p := range m.rolePerms[a.RoleID] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (m *mockStore) SelectRoleAssignments(_ context.Context, userID string) ([]RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignmentCalls++
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	var out []RoleAssignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) InsertRoleAssignment(_ context.Context, assignment RoleAssignment) (RoleAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return RoleAssignment{}, m.insertErr
	}
	m.nextID++
	assignment.ID = fmt.Sprintf("assignment-%d", m.nextID)
	assignment.RoleName = m.roleNames[assignment.RoleID]
	assignment.IsActive = true
	assignment.AssignedAt = time.Now().UTC()
	m.assignments = append(m.assignments, assignment)
	return assignment, nil
}

func (m *mockStore) DeactivateRoleAssignment(_ context.Context, userID, roleID string, tourID *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deactivateErr != nil {
		return 0, m.deactivateErr
	}
	var affected int64
	for i := range m.assignments {
		a := &m.assignments[i]
		if a.UserID != userID || a.RoleID != roleID || !a.IsActive {
			continue
		}
		if tourID == nil {
			if a.TourID != nil {
				continue
			}
		} else if a.TourID == nil || *a.TourID != *tourID {
			continue
		}
		a.IsActive = false
		affected++
	}
	return affected, nil
}

func (m *mockStore) InsertAuditRecord(_ context.Context, record AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditCalls++
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audits = append(m.audits, record)
	return nil
}

func (m *mockStore) ListTours(_ context.Context, tourIDs []string) ([]Tour, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listTourCalls++
	if m.listToursErr != nil {
		return nil, m.listToursErr
	}
	if tourIDs == nil {
		return append([]Tour(nil), m.tours...), nil
	}
	want := make(map[string]struct{}, len(tourIDs))
	for _, id := range tourIDs {
		want[id] = struct{}{}
	}
	var out []Tour
	for _, tour := range m.tours {
		if _, ok := want[tour.ID]; ok {
			out = append(out, tour)
		}
	}
	return out, nil
}

func (m *mockStore) ListEvents(_ context.Context, tourIDs []string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listEventCalls++
	if tourIDs == nil {
		return append([]Event(nil), m.events...), nil
	}
	want := make(map[string]struct{}, len(tourIDs))
	for _, id := range tourIDs {
		want[id] = struct{}{}
	}
	var out []Event
	for _, event := range m.events {
		if _, ok := want[event.TourID]; ok {
			out = append(out, event)
		}
	}
	return out, nil
}

func (m *mockStore) EventTour(_ context.Context, eventID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventTourCalls++
	if m.eventTourErr != nil {
		return "", m.eventTourErr
	}
	for _, event := range m.events {
		if event.ID == eventID {
			return event.TourID, nil
		}
	}
	return "", ErrNotFound
}

func (m *mockStore) counts() (resolve, audit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls, m.auditCalls
}

func (m *mockStore) auditRecords() []AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditRecord(nil), m.audits...)
}

func (m *mockStore) setResolveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveErr = err
}

func ptr(s string) *string { return &s }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService wires a full Service over the mock store with short cache
// TTLs and no Redis fan-out.
func newTestService(store *mockStore) *Service {
	logger := testLogger()
	resolver := NewResolver(store)
	cache := NewContextCache(resolver, CacheOptions{
		PermissionTTL: 50 * time.Millisecond,
		IsolationTTL:  50 * time.Millisecond,
		Size:          64,
	})
	rules := NewRuleEngine(store, logger)
	auditor := NewAuditor(store, logger)
	return NewService(store, cache, rules, auditor, nil, logger)
}
