package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"carhub/internal/domain"
	"carhub/internal/repository"
)

const createCarsTable = `
CREATE TABLE IF NOT EXISTS cars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_cars_owner_id ON cars(owner_id);
`

type CarRepository struct {
	db *sql.DB
}

func NewCarRepository(db *sql.DB) repository.CarRepository {
	return &CarRepository{db: db}
}

func (r *CarRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCarsTable); err != nil {
		return fmt.Errorf("create cars table: %w", err)
	}
	return nil
}

func (r *CarRepository) Create(ctx context.Context, car *domain.Car) (int64, error) {
	now := time.Now().UTC()
	car.CreatedAt = now
	car.UpdatedAt = now

	tags, err := encodeTags(car.Tags)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO cars (owner_id, title, description, tags, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		car.OwnerID,
		car.Title,
		car.Description,
		tags,
		car.CreatedAt,
		car.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert car: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("car last insert id: %w", err)
	}
	car.ID = id
	return id, nil
}

func (r *CarRepository) Update(ctx context.Context, car *domain.Car) error {
	car.UpdatedAt = time.Now().UTC()

	tags, err := encodeTags(car.Tags)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE cars
SET title=?, description=?, tags=?, updated_at=?
WHERE id=? AND owner_id=?`,
		car.Title,
		car.Description,
		tags,
		car.UpdatedAt,
		car.ID,
		car.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("car update rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrCarNotFound
	}
	return nil
}

func (r *CarRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM cars WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("car delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrCarNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM car_images WHERE car_id=?`, id); err != nil {
		return fmt.Errorf("delete car images: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit car delete: %w", err)
	}
	return nil
}

func (r *CarRepository) Get(ctx context.Context, ownerID, id int64) (*domain.Car, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, title, description, tags, created_at, updated_at
FROM cars
WHERE id=? AND owner_id=?`,
		id,
		ownerID,
	)
	return scanCar(row)
}

func (r *CarRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, title, description, tags, created_at, updated_at
FROM cars
WHERE owner_id=?
ORDER BY id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}
	defer rows.Close()

	return collectCars(rows)
}

func (r *CarRepository) SearchByOwner(ctx context.Context, ownerID int64, keyword string) ([]domain.Car, error) {
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"

	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, title, description, tags, created_at, updated_at
FROM cars
WHERE owner_id=?
  AND (lower(title) LIKE ? ESCAPE '\'
    OR lower(description) LIKE ? ESCAPE '\'
    OR EXISTS (
      SELECT 1 FROM json_each(cars.tags)
      WHERE lower(json_each.value) LIKE ? ESCAPE '\'
    ))
ORDER BY id DESC`,
		ownerID,
		pattern,
		pattern,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search cars: %w", err)
	}
	defer rows.Close()

	return collectCars(rows)
}

func collectCars(rows *sql.Rows) ([]domain.Car, error) {
	cars := []domain.Car{}
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, *car)
	}
	return cars, rows.Err()
}

func scanCar(scanner interface {
	Scan(dest ...any) error
}) (*domain.Car, error) {
	var (
		car       domain.Car
		tags      string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := scanner.Scan(
		&car.ID,
		&car.OwnerID,
		&car.Title,
		&car.Description,
		&tags,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrCarNotFound
		}
		return nil, fmt.Errorf("scan car: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &car.Tags); err != nil {
		return nil, fmt.Errorf("decode car tags: %w", err)
	}
	car.CreatedAt = createdAt.Local()
	car.UpdatedAt = updatedAt.Local()

	return &car, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode car tags: %w", err)
	}
	return string(encoded), nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
