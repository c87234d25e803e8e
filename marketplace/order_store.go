package marketplace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// OrderStore persists published orders for the demo market gateway.
type OrderStore interface {
	SaveDatasetOrder(ctx context.Context, order PublishedDatasetOrder) error
	SaveAppOrder(ctx context.Context, order PublishedAppOrder) error
	SaveWorkerpoolOrder(ctx context.Context, order PublishedWorkerpoolOrder) error
	LoadDatasetOrders(ctx context.Context) ([]PublishedDatasetOrder, error)
	LoadAppOrders(ctx context.Context) ([]PublishedAppOrder, error)
	LoadWorkerpoolOrders(ctx context.Context) ([]PublishedWorkerpoolOrder, error)
	Close() error
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// PostgresOrderStore implements OrderStore with PostgreSQL persistence.
// Orders are stored as JSON rows keyed by order hash and kind.
type PostgresOrderStore struct {
	db *sql.DB
}

// NewPostgresOrderStore opens the database and runs migrations.
func NewPostgresOrderStore(config *PostgresConfig) (*PostgresOrderStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresOrderStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresOrderStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS published_orders (
		order_hash VARCHAR(128) PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_kind ON published_orders(kind);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresOrderStore) save(ctx context.Context, orderHash, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}

	query := `
	INSERT INTO published_orders (order_hash, kind, payload, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (order_hash) DO UPDATE SET
		payload = EXCLUDED.payload,
		updated_at = NOW()
	`
	_, err = s.db.ExecContext(ctx, query, orderHash, kind, data)
	return err
}

func loadOrders[T any](ctx context.Context, db *sql.DB, kind string) ([]T, error) {
	rows, err := db.QueryContext(ctx, "SELECT payload FROM published_orders WHERE kind = $1 ORDER BY created_at", kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var order T
		if err := json.Unmarshal(payload, &order); err != nil {
			continue
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// SaveDatasetOrder persists a published dataset order.
func (s *PostgresOrderStore) SaveDatasetOrder(ctx context.Context, order PublishedDatasetOrder) error {
	return s.save(ctx, order.OrderHash, "dataset", order)
}

// SaveAppOrder persists a published app order.
func (s *PostgresOrderStore) SaveAppOrder(ctx context.Context, order PublishedAppOrder) error {
	return s.save(ctx, order.OrderHash, "app", order)
}

// SaveWorkerpoolOrder persists a published workerpool order.
func (s *PostgresOrderStore) SaveWorkerpoolOrder(ctx context.Context, order PublishedWorkerpoolOrder) error {
	return s.save(ctx, order.OrderHash, "workerpool", order)
}

// LoadDatasetOrders retrieves all persisted dataset orders.
func (s *PostgresOrderStore) LoadDatasetOrders(ctx context.Context) ([]PublishedDatasetOrder, error) {
	return loadOrders[PublishedDatasetOrder](ctx, s.db, "dataset")
}

// LoadAppOrders retrieves all persisted app orders.
func (s *PostgresOrderStore) LoadAppOrders(ctx context.Context) ([]PublishedAppOrder, error) {
	return loadOrders[PublishedAppOrder](ctx, s.db, "app")
}

// LoadWorkerpoolOrders retrieves all persisted workerpool orders.
func (s *PostgresOrderStore) LoadWorkerpoolOrders(ctx context.Context) ([]PublishedWorkerpoolOrder, error) {
	return loadOrders[PublishedWorkerpoolOrder](ctx, s.db, "workerpool")
}

// Close closes the database connection.
func (s *PostgresOrderStore) Close() error {
	return s.db.Close()
}

// MemoryOrderStore implements OrderStore without a database.
type MemoryOrderStore struct {
	mu               sync.Mutex
	datasetOrders    map[string]PublishedDatasetOrder
	appOrders        map[string]PublishedAppOrder
	workerpoolOrders map[string]PublishedWorkerpoolOrder
}

// NewMemoryOrderStore creates an in-memory store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		datasetOrders:    make(map[string]PublishedDatasetOrder),
		appOrders:        make(map[string]PublishedAppOrder),
		workerpoolOrders: make(map[string]PublishedWorkerpoolOrder),
	}
}

// SaveDatasetOrder stores a dataset order in memory.
func (s *MemoryOrderStore) SaveDatasetOrder(ctx context.Context, order PublishedDatasetOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetOrders[order.OrderHash] = order
	return nil
}

// SaveAppOrder stores an app order in memory.
func (s *MemoryOrderStore) SaveAppOrder(ctx context.Context, order PublishedAppOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appOrders[order.OrderHash] = order
	return nil
}

// SaveWorkerpoolOrder stores a workerpool order in memory.
func (s *MemoryOrderStore) SaveWorkerpoolOrder(ctx context.Context, order PublishedWorkerpoolOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workerpoolOrders[order.OrderHash] = order
	return nil
}

// LoadDatasetOrders returns all stored dataset orders.
func (s *MemoryOrderStore) LoadDatasetOrders(ctx context.Context) ([]PublishedDatasetOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublishedDatasetOrder, 0, len(s.datasetOrders))
	for _, o := range s.datasetOrders {
		out = append(out, o)
	}
	return out, nil
}

// LoadAppOrders returns all stored app orders.
func (s *MemoryOrderStore) LoadAppOrders(ctx context.Context) ([]PublishedAppOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublishedAppOrder, 0, len(s.appOrders))
	for _, o := range s.appOrders {
		out = append(out, o)
	}
	return out, nil
}

// LoadWorkerpoolOrders returns all stored workerpool orders.
func (s *MemoryOrderStore) LoadWorkerpoolOrders(ctx context.Context) ([]PublishedWorkerpoolOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublishedWorkerpoolOrder, 0, len(s.workerpoolOrders))
	for _, o := range s.workerpoolOrders {
		out = append(out, o)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryOrderStore) Close() error {
	return nil
}
