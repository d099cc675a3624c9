// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже занятым именем.
	ErrUserExists = apperr.New(apperr.KindConflict, "user name already taken")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")
	// ErrProductExists возвращается при повторном коде продукции.
	ErrProductExists = apperr.New(apperr.KindConflict, "product code already exists")
	// ErrProductNotFound возвращается, если кода продукции нет в справочнике.
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "product code not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = apperr.New(apperr.KindNotFound, "order not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CountUsers возвращает число учётных записей.
func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, role, password_hash) VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		u.Name, u.Email, string(u.Role), u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("%w: %s", ErrUserExists, u.Name)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const userColumns = `id, name, email, role, password_hash, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}

// GetUserByName возвращает пользователя по имени.
func (r *PostgresRepository) GetUserByName(ctx context.Context, name string) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей в порядке создания.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// UpdateUser изменяет имя, почту и роль пользователя. Пустой хеш пароля оставляет прежний пароль.
func (r *PostgresRepository) UpdateUser(ctx context.Context, u model.User) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET name = $2, email = $3, role = $4,
		     password_hash = COALESCE($5, password_hash)
		 WHERE id = $1`,
		u.ID, u.Name, u.Email, string(u.Role), nullableBytes(u.PasswordHash),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Name)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

// DeleteUser удаляет пользователя.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListProductCodes возвращает справочник продукции, упорядоченный по коду.
func (r *PostgresRepository) ListProductCodes(ctx context.Context) ([]model.ProductCode, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, exp FROM fgcodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select fgcodes: %w", err)
	}
	defer rows.Close()

	var codes []model.ProductCode
	for rows.Next() {
		var p model.ProductCode
		if err := rows.Scan(&p.ID, &p.Name, &p.Exp); err != nil {
			return nil, fmt.Errorf("scan fgcode: %w", err)
		}
		codes = append(codes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return codes, nil
}

// CreateProductCode добавляет позицию справочника.
func (r *PostgresRepository) CreateProductCode(ctx context.Context, p model.ProductCode) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO fgcodes (id, name, exp) VALUES ($1, $2, $3)`, p.ID, p.Name, p.Exp)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrProductExists, p.ID)
		}
		return fmt.Errorf("create fgcode: %w", err)
	}
	return nil
}

// UpdateProductCode изменяет название и срок годности позиции.
func (r *PostgresRepository) UpdateProductCode(ctx context.Context, p model.ProductCode) error {
	cmdTag, err := r.pool.Exec(ctx, `UPDATE fgcodes SET name = $2, exp = $3 WHERE id = $1`, p.ID, p.Name, p.Exp)
	if err != nil {
		return fmt.Errorf("update fgcode: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProductCode удаляет позицию справочника. Уже созданные заказы не затрагиваются.
func (r *PostgresRepository) DeleteProductCode(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM fgcodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fgcode: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

const orderColumns = `id, order_date, order_time, order_datetime, lot_number, product_id, product_name,
	product_exp, production_date, expiry_date, quantity, notes, created_by, created_at,
	verified_by, verified_at, is_verified`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderDate, &o.OrderTime, &o.OrderDateTime, &o.LotNumber, &o.ProductID, &o.ProductName,
		&o.ProductExp, &o.ProductionDate, &o.ExpiryDate, &o.Quantity, &o.Notes, &o.CreatedBy, &o.CreatedAt,
		&o.VerifiedBy, &o.VerifiedAt, &o.IsVerified,
	)
	return o, err
}

func bumpRevision(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `UPDATE order_revision SET revision = revision + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump order revision: %w", err)
	}
	return nil
}

// CreateOrder сохраняет заказ и увеличивает ревизию коллекции в той же транзакции.
// Идентификатор назначает база.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := scanOrder(tx.QueryRow(ctx,
		`INSERT INTO orders (order_date, order_time, order_datetime, lot_number, product_id, product_name,
			product_exp, production_date, expiry_date, quantity, notes, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+orderColumns,
		o.OrderDate, o.OrderTime, o.OrderDateTime, o.LotNumber, o.ProductID, o.ProductName,
		o.ProductExp, o.ProductionDate, o.ExpiryDate, o.Quantity, o.Notes, o.CreatedBy, o.CreatedAt,
	))
	if err != nil {
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}

	if err := bumpRevision(ctx, tx); err != nil {
		return model.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

// ListOrders возвращает все заказы вместе с ревизией коллекции, прочитанными из одного снимка.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var revision int64
	if err := tx.QueryRow(ctx, `SELECT revision FROM order_revision WHERE id = 1`).Scan(&revision); err != nil {
		return nil, "", fmt.Errorf("select order revision: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, "", fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("rows error: %w", err)
	}

	return orders, strconv.FormatInt(revision, 10), nil
}

// OrderRevision возвращает текущую ревизию коллекции заказов.
func (r *PostgresRepository) OrderRevision(ctx context.Context) (string, error) {
	var revision int64
	if err := r.pool.QueryRow(ctx, `SELECT revision FROM order_revision WHERE id = 1`).Scan(&revision); err != nil {
		return "", fmt.Errorf("select order revision: %w", err)
	}
	return strconv.FormatInt(revision, 10), nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateOrder перезаписывает изменяемые поля заказа и увеличивает ревизию коллекции.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated, err := scanOrder(tx.QueryRow(ctx,
		`UPDATE orders
		 SET lot_number = $2, product_id = $3, product_name = $4, product_exp = $5,
		     production_date = $6, expiry_date = $7, quantity = $8, notes = $9
		 WHERE id = $1
		 RETURNING `+orderColumns,
		o.ID, o.LotNumber, o.ProductID, o.ProductName, o.ProductExp,
		o.ProductionDate, o.ExpiryDate, o.Quantity, o.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("update order: %w", err)
	}

	if err := bumpRevision(ctx, tx); err != nil {
		return model.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	return updated, nil
}

// DeleteOrder удаляет заказ и увеличивает ревизию коллекции.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
