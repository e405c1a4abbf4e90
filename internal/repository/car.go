package repository

import (
	"context"

	"carhub/internal/domain"
)

// CarRepository exposes persistence operations for Car aggregates.
// Every accessor that takes an ownerID must restrict results to cars
// whose owner matches it; a car owned by someone else is "not found".
type CarRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, car *domain.Car) (int64, error)
	Update(ctx context.Context, car *domain.Car) error
	Delete(ctx context.Context, ownerID, id int64) error
	Get(ctx context.Context, ownerID, id int64) (*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Car, error)
	SearchByOwner(ctx context.Context, ownerID int64, keyword string) ([]domain.Car, error)
}

// CarImageRepository manages the uploads attached to a car.
type CarImageRepository interface {
	Init(ctx context.Context) error
	ReplaceForCar(ctx context.Context, carID int64, images []domain.CarImage) error
	ListByCar(ctx context.Context, carID int64) ([]domain.CarImage, error)
}
