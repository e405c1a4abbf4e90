package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"carhub/internal/domain"
	"carhub/internal/repository"
)

const createCarImagesTable = `
CREATE TABLE IF NOT EXISTS car_images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	car_id INTEGER NOT NULL,
	file_name TEXT NOT NULL,
	original_name TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(car_id) REFERENCES cars(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_car_images_car_id ON car_images(car_id);
`

type CarImageRepository struct {
	db *sql.DB
}

func NewCarImageRepository(db *sql.DB) repository.CarImageRepository {
	return &CarImageRepository{db: db}
}

func (r *CarImageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCarImagesTable); err != nil {
		return fmt.Errorf("create car_images table: %w", err)
	}
	return nil
}

func (r *CarImageRepository) ReplaceForCar(ctx context.Context, carID int64, images []domain.CarImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM car_images WHERE car_id=?`, carID); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}

	for _, image := range images {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO car_images (car_id, file_name, original_name, size, content_type)
VALUES (?, ?, ?, ?, ?)`,
			carID,
			image.FileName,
			image.OriginalName,
			image.Size,
			image.ContentType,
		); err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *CarImageRepository) ListByCar(ctx context.Context, carID int64) ([]domain.CarImage, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, car_id, file_name, original_name, size, content_type
FROM car_images
WHERE car_id=?
ORDER BY id ASC`, carID)
	if err != nil {
		return nil, fmt.Errorf("query car images: %w", err)
	}
	defer rows.Close()

	var images []domain.CarImage
	for rows.Next() {
		var image domain.CarImage
		if err := rows.Scan(&image.ID, &image.CarID, &image.FileName, &image.OriginalName, &image.Size, &image.ContentType); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, image)
	}

	return images, rows.Err()
}
