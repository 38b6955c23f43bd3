package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/halcyonlabs/authcore/internal/persist"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.Issuer = "authcore-test"
	return cfg
}

type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]*User
	byEmail map[string]string
	byName  map[string]string

	// conflictNext forces that many Update calls to lose an optimistic
	// concurrency race before succeeding.
	conflictNext int
	updateCalls  int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:   map[string]*User{},
		byEmail: map[string]string{},
		byName:  map[string]string{},
	}
}

func (s *mockUserStore) add(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	s.byName[u.Username] = u.ID
}

func (s *mockUserStore) get(id string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *mockUserStore) FetchByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *mockUserStore) FetchByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *mockUserStore) FetchByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *mockUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	s.byName[u.Username] = u.ID
	return nil
}

func (s *mockUserStore) Update(_ context.Context, u *User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateCalls++

	stored, ok := s.users[u.ID]
	if !ok {
		return 0, nil
	}

	if s.conflictNext > 0 || stored.Version != u.Version {
		if s.conflictNext > 0 {
			s.conflictNext--
			stored.Version++
		}
		cur := *stored
		return 0, &persist.ConflictError{Entity: "user", Current: &cur}
	}

	cp := *u
	cp.Version++
	s.users[u.ID] = &cp
	s.byEmail[cp.Email] = cp.ID
	s.byName[cp.Username] = cp.ID
	return 1, nil
}

func (s *mockUserStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	delete(s.byEmail, u.Email)
	delete(s.byName, u.Username)
	delete(s.users, id)
	return 1, nil
}

type mockClaimStore struct {
	mu     sync.Mutex
	claims map[string][]UserClaim
}

func newMockClaimStore() *mockClaimStore {
	return &mockClaimStore{claims: map[string][]UserClaim{}}
}

func (s *mockClaimStore) FetchByUser(_ context.Context, userID string) ([]UserClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UserClaim(nil), s.claims[userID]...), nil
}

func (s *mockClaimStore) Create(_ context.Context, claims []UserClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range claims {
		s.claims[c.UserID] = append(s.claims[c.UserID], c)
	}
	return nil
}

type mockActivityStore struct {
	mu      sync.Mutex
	records map[string]*LoginActivity // keyed by userID + "|" + ip
}

func newMockActivityStore() *mockActivityStore {
	return &mockActivityStore{records: map[string]*LoginActivity{}}
}

func (s *mockActivityStore) key(userID, ip string) string { return userID + "|" + ip }

func (s *mockActivityStore) get(userID, ip string) *LoginActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[s.key(userID, ip)]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

func (s *mockActivityStore) FetchByUserAndIP(_ context.Context, userID, ip string) (*LoginActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[s.key(userID, ip)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *mockActivityStore) Create(_ context.Context, a *LoginActivity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.records[s.key(a.UserID, a.IP)] = &cp
	return 1, nil
}

func (s *mockActivityStore) Update(_ context.Context, a *LoginActivity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[s.key(a.UserID, a.IP)]; !ok {
		return 0, nil
	}
	cp := *a
	s.records[s.key(a.UserID, a.IP)] = &cp
	return 1, nil
}

type mockRoleStore struct {
	roles map[string]*Role
}

func (s *mockRoleStore) FetchByID(_ context.Context, id string) (*Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *role
	return &cp, nil
}

type staticLocator struct {
	device  string
	ip      string
	city    string
	country string
}

func (l staticLocator) CurrentDevice(context.Context) string { return l.device }

func (l staticLocator) CurrentIP(context.Context) string { return l.ip }

func (l staticLocator) LocationForIP(context.Context, string) (string, string) {
	return l.city, l.country
}

type testStores struct {
	users    *mockUserStore
	claims   *mockClaimStore
	activity *mockActivityStore
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testStores) {
	t.Helper()

	stores := &testStores{
		users:    newMockUserStore(),
		claims:   newMockClaimStore(),
		activity: newMockActivityStore(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithUserStore(stores.users).
		WithClaimStore(stores.claims).
		WithLoginActivityStore(stores.activity).
		WithDeviceLocator(staticLocator{device: "test-device", ip: "203.0.113.9", city: "Lisbon", country: "PT"}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, stores
}

// seedUser hashes plainPassword with the engine's hasher and registers the
// account directly in the store, bypassing Register.
func seedUser(t *testing.T, engine *Engine, stores *testStores, u User, plainPassword string) *User {
	t.Helper()

	hash, salt, err := engine.hasher.Hash(plainPassword)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	u.PasswordHash = hash
	u.Salt = salt
	if u.ID == "" {
		u.ID = "user-" + u.Username
	}
	stores.users.add(&u)
	return &u
}

func frozenClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
