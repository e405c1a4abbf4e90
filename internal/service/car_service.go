package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carhub/internal/domain"
	"carhub/internal/repository"
)

// ErrCarValidation is returned for malformed car input.
var ErrCarValidation = errors.New("invalid car input")

// CarInput carries the caller-editable fields of a car.
type CarInput struct {
	Title       string
	Description string
	Tags        []string
}

// CarService coordinates car level operations backed by repositories.
// Every operation is scoped to the owner resolved by the auth gate; a car
// owned by another user is indistinguishable from a missing one.
type CarService interface {
	CreateCar(ctx context.Context, ownerID int64, input CarInput, images []domain.CarImage) (*domain.Car, error)
	GetCar(ctx context.Context, ownerID, id int64) (*domain.Car, error)
	ListCars(ctx context.Context, ownerID int64) ([]domain.Car, error)
	SearchCars(ctx context.Context, ownerID int64, keyword string) ([]domain.Car, error)
	// UpdateCar replaces the editable fields. A nil newImages keeps the
	// current image set; non-nil replaces it.
	UpdateCar(ctx context.Context, ownerID, id int64, input CarInput, newImages []domain.CarImage) (*domain.Car, error)
	// DeleteCar removes the car and returns its last state so callers can
	// clean up stored files.
	DeleteCar(ctx context.Context, ownerID, id int64) (*domain.Car, error)
}

type carService struct {
	cars   repository.CarRepository
	images repository.CarImageRepository
}

func NewCarService(cars repository.CarRepository, images repository.CarImageRepository) CarService {
	return &carService{
		cars:   cars,
		images: images,
	}
}

func (s *carService) CreateCar(ctx context.Context, ownerID int64, input CarInput, images []domain.CarImage) (*domain.Car, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	car := &domain.Car{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
	}

	if _, err := s.cars.Create(ctx, car); err != nil {
		return nil, err
	}
	if err := s.images.ReplaceForCar(ctx, car.ID, images); err != nil {
		return nil, err
	}

	return s.GetCar(ctx, ownerID, car.ID)
}

func (s *carService) GetCar(ctx context.Context, ownerID, id int64) (*domain.Car, error) {
	car, err := s.cars.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	images, err := s.images.ListByCar(ctx, id)
	if err != nil {
		return nil, err
	}
	car.Images = images
	return car, nil
}

func (s *carService) ListCars(ctx context.Context, ownerID int64) ([]domain.Car, error) {
	cars, err := s.cars.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.attachImages(ctx, cars)
}

func (s *carService) SearchCars(ctx context.Context, ownerID int64, keyword string) ([]domain.Car, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrCarValidation)
	}

	cars, err := s.cars.SearchByOwner(ctx, ownerID, keyword)
	if err != nil {
		return nil, err
	}
	return s.attachImages(ctx, cars)
}

func (s *carService) UpdateCar(ctx context.Context, ownerID, id int64, input CarInput, newImages []domain.CarImage) (*domain.Car, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	car := &domain.Car{
		ID:          id,
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
	}

	if err := s.cars.Update(ctx, car); err != nil {
		return nil, err
	}
	if newImages != nil {
		if err := s.images.ReplaceForCar(ctx, id, newImages); err != nil {
			return nil, err
		}
	}

	return s.GetCar(ctx, ownerID, id)
}

func (s *carService) DeleteCar(ctx context.Context, ownerID, id int64) (*domain.Car, error) {
	car, err := s.GetCar(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.cars.Delete(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return car, nil
}

func (s *carService) attachImages(ctx context.Context, cars []domain.Car) ([]domain.Car, error) {
	for i := range cars {
		images, err := s.images.ListByCar(ctx, cars[i].ID)
		if err != nil {
			return nil, err
		}
		cars[i].Images = images
	}
	return cars, nil
}

func normalizeInput(input CarInput) (CarInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return CarInput{}, fmt.Errorf("%w: title is required", ErrCarValidation)
	}

	tags := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	input.Tags = tags
	return input, nil
}
