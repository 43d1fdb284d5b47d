package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"warehousebot/internal/models"
	"warehousebot/internal/redis"
)

const (
	snapshotKey = "directory:snapshot"
	snapshotTTL = 12 * time.Hour
)

// Counts reports reference-table sizes after a refresh.
type Counts struct {
	Users          int `json:"users"`
	Counterparties int `json:"counterparties"`
	Places         int `json:"places"`
}

type snapshot struct {
	Users          []models.User         `json:"users"`
	Counterparties []models.Counterparty `json:"counterparties"`
	Places         []models.Place        `json:"places"`
	LoadedAt       time.Time             `json:"loaded_at"`
}

// Service is the read-mostly reference cache: operators with their
// capability flags, counterparties, and places. Reads refresh the cache
// when the TTL has elapsed; sessions never mutate it.
type Service struct {
	db            *sql.DB
	cache         *redis.Client
	ttl           time.Duration
	adminUsername string

	mu             sync.RWMutex
	users          map[int64]models.User
	counterparties []models.Counterparty
	places         []models.Place
	lastUpdate     time.Time
}

// NewService builds the directory. cacheClient may be nil; when present it
// is used to warm the in-memory tables across restarts.
func NewService(db *sql.DB, cacheClient *redis.Client, ttl time.Duration, adminUsername string) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &Service{
		db:            db,
		cache:         cacheClient,
		ttl:           ttl,
		adminUsername: adminUsername,
		users:         make(map[int64]models.User),
	}
	s.warmFromSnapshot()
	return s
}

func (s *Service) warmFromSnapshot() {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := s.cache.Get(ctx, snapshotKey)
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("directory snapshot load failed: %v", err)
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		log.Printf("directory snapshot decode failed: %v", err)
		return
	}
	s.mu.Lock()
	for _, u := range snap.Users {
		s.users[u.ID] = u
	}
	s.counterparties = snap.Counterparties
	s.places = snap.Places
	s.lastUpdate = snap.LoadedAt
	s.mu.Unlock()
}

func (s *Service) storeSnapshot(snap snapshot) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, snapshotKey, data, snapshotTTL); err != nil {
		log.Printf("directory snapshot store failed: %v", err)
	}
}

func (s *Service) refreshIfStale(ctx context.Context) {
	s.mu.RLock()
	stale := s.lastUpdate.IsZero() || time.Since(s.lastUpdate) > s.ttl
	s.mu.RUnlock()
	if !stale {
		return
	}
	if err := s.loadAll(ctx); err != nil {
		// Keep serving the previous tables rather than failing reads.
		log.Printf("directory refresh failed: %v", err)
	}
}

func (s *Service) loadAll(ctx context.Context) error {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	counterparties, err := s.loadCounterparties(ctx)
	if err != nil {
		return err
	}
	places, err := s.loadPlaces(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	s.mu.Lock()
	s.users = users
	s.counterparties = counterparties
	s.places = places
	s.lastUpdate = now
	s.mu.Unlock()

	userList := make([]models.User, 0, len(users))
	for _, u := range users {
		userList = append(userList, u)
	}
	s.storeSnapshot(snapshot{
		Users:          userList,
		Counterparties: counterparties,
		Places:         places,
		LoadedAt:       now,
	})
	log.Printf("directory loaded: %d users, %d counterparties, %d places",
		len(users), len(counterparties), len(places))
	return nil
}

func (s *Service) loadUsers(ctx context.Context) (map[int64]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, display_name, warehouse, documents, vehicles, invoices, admin, active
		 FROM users WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	users := make(map[int64]models.User)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName,
			&u.Warehouse, &u.Documents, &u.Vehicles, &u.Invoices, &u.Admin, &u.Active); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func (s *Service) loadCounterparties(ctx context.Context) ([]models.Counterparty, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, active FROM counterparties WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load counterparties: %w", err)
	}
	defer rows.Close()

	var out []models.Counterparty
	for rows.Next() {
		var c models.Counterparty
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, fmt.Errorf("scan counterparty: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Service) loadPlaces(ctx context.Context) ([]models.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, zone, active FROM places WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load places: %w", err)
	}
	defer rows.Close()

	var out []models.Place
	for rows.Next() {
		var p models.Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Zone, &p.Active); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// invalidateSnapshot drops the cached snapshot so a restart cannot warm
// from data a forced reload was meant to replace.
func (s *Service) invalidateSnapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.cache.Del(dctx, snapshotKey); err != nil {
		log.Printf("directory snapshot invalidate failed: %v", err)
	}
}

// ForceRefresh reloads every reference table immediately (/reload command).
func (s *Service) ForceRefresh(ctx context.Context) (Counts, error) {
	s.invalidateSnapshot(ctx)
	if err := s.loadAll(ctx); err != nil {
		return Counts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Users:          len(s.users),
		Counterparties: len(s.counterparties),
		Places:         len(s.places),
	}, nil
}

// GetUser returns the active user by id, refreshing the cache if stale.
func (s *Service) GetUser(ctx context.Context, id int64) (models.User, bool) {
	s.refreshIfStale(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// IsRegistered reports whether the id belongs to an active user.
func (s *Service) IsRegistered(ctx context.Context, id int64) bool {
	_, ok := s.GetUser(ctx, id)
	return ok
}

func (s *Service) CanWarehouse(ctx context.Context, id int64) bool {
	u, ok := s.GetUser(ctx, id)
	return ok && u.Warehouse
}

func (s *Service) CanDocuments(ctx context.Context, id int64) bool {
	u, ok := s.GetUser(ctx, id)
	return ok && u.Documents
}

func (s *Service) CanVehicles(ctx context.Context, id int64) bool {
	u, ok := s.GetUser(ctx, id)
	return ok && u.Vehicles
}

func (s *Service) CanInvoices(ctx context.Context, id int64) bool {
	u, ok := s.GetUser(ctx, id)
	return ok && u.Invoices
}

// IsAdmin is satisfied by the admin flag or the configured admin username.
func (s *Service) IsAdmin(ctx context.Context, id int64) bool {
	u, ok := s.GetUser(ctx, id)
	if !ok {
		return false
	}
	if u.Admin {
		return true
	}
	return s.adminUsername != "" && strings.EqualFold(u.Username, s.adminUsername)
}

// Username returns the user's login name, or "unknown".
func (s *Service) Username(ctx context.Context, id int64) string {
	u, ok := s.GetUser(ctx, id)
	if !ok || u.Username == "" {
		return "unknown"
	}
	return u.Username
}

// DisplayName prefers the display name over the username.
func (s *Service) DisplayName(ctx context.Context, id int64) string {
	u, ok := s.GetUser(ctx, id)
	if !ok {
		return "unknown"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// Counterparties returns the active counterparties in directory order.
func (s *Service) Counterparties(ctx context.Context) []models.Counterparty {
	s.refreshIfStale(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Counterparty, len(s.counterparties))
	copy(out, s.counterparties)
	return out
}

// Places returns the active places in directory order.
func (s *Service) Places(ctx context.Context) []models.Place {
	s.refreshIfStale(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Place, len(s.places))
	copy(out, s.places)
	return out
}

// MenuItems lists the workflow entries the user's capabilities allow, in
// main-menu order.
func (s *Service) MenuItems(ctx context.Context, id int64) []string {
	u, ok := s.GetUser(ctx, id)
	if !ok {
		return nil
	}
	var items []string
	if u.Warehouse {
		items = append(items, "receipt", "issue", "new_product")
	}
	if u.Documents {
		items = append(items, "documents")
	}
	if u.Vehicles {
		items = append(items, "vehicles")
	}
	if u.Invoices {
		items = append(items, "invoices")
	}
	items = append(items, "history")
	return items
}
