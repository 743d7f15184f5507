package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	contractx "github.com/chatcart/chatcart/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig configures the durable order store.
type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders"`

	ID              int64     `bun:"id,pk,autoincrement"`
	OrderID         string    `bun:"order_id,notnull,unique"`
	CustomerName    string    `bun:"customer_name,notnull"`
	CustomerEmail   string    `bun:"customer_email,notnull"`
	ShippingAddress string    `bun:"shipping_address,notnull"`
	TotalAmount     float64   `bun:"total_amount,notnull"`
	Status          string    `bun:"status,notnull,default:'pending'"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type orderLineRow struct {
	bun.BaseModel `bun:"table:order_lines"`

	ID          int64   `bun:"id,pk,autoincrement"`
	OrderID     string  `bun:"order_id,notnull"`
	ProductID   string  `bun:"product_id,notnull"`
	ProductName string  `bun:"product_name,notnull"`
	Quantity    int     `bun:"quantity,notnull"`
	UnitPrice   float64 `bun:"unit_price,notnull"`
	Subtotal    float64 `bun:"subtotal,notnull"`
}

// PostgresStore persists orders in Postgres through bun. One Commit is one
// transaction: the order row and all line rows land together or not at all.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("order store dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(timeout),
	))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

var _ contractx.OrderStore = (*PostgresStore)(nil)

// Init creates the orders tables if they do not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*orderRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*orderLineRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create order_lines table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Commit(ctx context.Context, order contractx.Order) (string, error) {
	orderID := newOrderID()

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		row := &orderRow{
			OrderID:         orderID,
			CustomerName:    order.CustomerName,
			CustomerEmail:   order.CustomerEmail,
			ShippingAddress: order.ShippingAddress,
			TotalAmount:     order.Total,
			Status:          "pending",
			CreatedAt:       order.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		lines := make([]orderLineRow, 0, len(order.Lines))
		for _, l := range order.Lines {
			lines = append(lines, orderLineRow{
				OrderID:     orderID,
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Subtotal:    l.Subtotal,
			})
		}
		if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return orderID, nil
}

// Close releases the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
