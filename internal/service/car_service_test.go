package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"carhub/internal/domain"
	"carhub/internal/repository"
	"carhub/internal/repository/sqlite"
)

type carFixture struct {
	cars  CarService
	users UserService
	alice int64
	bob   int64
}

func newCarFixture(t *testing.T) carFixture {
	t.Helper()

	db := openServiceDB(t)
	users := NewUserService(sqlite.NewUserRepository(db))
	cars := NewCarService(sqlite.NewCarRepository(db), sqlite.NewCarImageRepository(db))

	ctx := context.Background()
	alice, err := users.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	bob, err := users.Register(ctx, "bob", "password2")
	require.NoError(t, err)

	return carFixture{cars: cars, users: users, alice: alice.ID, bob: bob.ID}
}

func TestCreateCarWithImages(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{
		Title:       " Civic ",
		Description: "daily driver",
		Tags:        []string{"honda", " sedan ", ""},
	}, []domain.CarImage{
		{FileName: "1-a.png", OriginalName: "front.png", Size: 10, ContentType: "image/png"},
	})
	require.NoError(t, err)
	require.Equal(t, "Civic", car.Title)
	require.Equal(t, []string{"honda", "sedan"}, car.Tags)
	require.Len(t, car.Images, 1)
	require.Equal(t, car.ID, car.Images[0].CarID)
}

func TestCreateCarRequiresTitle(t *testing.T) {
	f := newCarFixture(t)

	_, err := f.cars.CreateCar(context.Background(), f.alice, CarInput{Title: "   "}, nil)
	require.ErrorIs(t, err, ErrCarValidation)
}

func TestGetCarIsOwnerScoped(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, nil)
	require.NoError(t, err)

	_, err = f.cars.GetCar(ctx, f.bob, car.ID)
	require.ErrorIs(t, err, repository.ErrCarNotFound)
}

func TestListCarsOnlyOwn(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	_, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, nil)
	require.NoError(t, err)
	_, err = f.cars.CreateCar(ctx, f.bob, CarInput{Title: "Corolla"}, nil)
	require.NoError(t, err)

	cars, err := f.cars.ListCars(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	require.Equal(t, "Civic", cars[0].Title)
}

func TestSearchCars(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	_, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, nil)
	require.NoError(t, err)

	cars, err := f.cars.SearchCars(ctx, f.alice, "civ")
	require.NoError(t, err)
	require.Len(t, cars, 1)

	// the same keyword as another user finds nothing
	cars, err = f.cars.SearchCars(ctx, f.bob, "civ")
	require.NoError(t, err)
	require.Empty(t, cars)

	_, err = f.cars.SearchCars(ctx, f.alice, "  ")
	require.ErrorIs(t, err, ErrCarValidation)
}

func TestUpdateCarKeepsImagesWhenNoneUploaded(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, []domain.CarImage{
		{FileName: "1-a.png"},
	})
	require.NoError(t, err)

	updated, err := f.cars.UpdateCar(ctx, f.alice, car.ID, CarInput{Title: "Civic EX"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Civic EX", updated.Title)
	require.Len(t, updated.Images, 1)
	require.Equal(t, "1-a.png", updated.Images[0].FileName)
}

func TestUpdateCarReplacesImages(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, []domain.CarImage{
		{FileName: "1-a.png"},
	})
	require.NoError(t, err)

	updated, err := f.cars.UpdateCar(ctx, f.alice, car.ID, CarInput{Title: "Civic"}, []domain.CarImage{
		{FileName: "2-b.jpg"},
		{FileName: "2-c.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, updated.Images, 2)
	require.Equal(t, "2-b.jpg", updated.Images[0].FileName)
}

func TestUpdateForeignCar(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, nil)
	require.NoError(t, err)

	_, err = f.cars.UpdateCar(ctx, f.bob, car.ID, CarInput{Title: "mine now"}, nil)
	require.ErrorIs(t, err, repository.ErrCarNotFound)

	kept, err := f.cars.GetCar(ctx, f.alice, car.ID)
	require.NoError(t, err)
	require.Equal(t, "Civic", kept.Title)
}

func TestDeleteCarReturnsLastState(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, []domain.CarImage{
		{FileName: "1-a.png"},
	})
	require.NoError(t, err)

	deleted, err := f.cars.DeleteCar(ctx, f.alice, car.ID)
	require.NoError(t, err)
	require.Len(t, deleted.Images, 1)

	_, err = f.cars.GetCar(ctx, f.alice, car.ID)
	require.ErrorIs(t, err, repository.ErrCarNotFound)
}

func TestDeleteForeignOrMissingCar(t *testing.T) {
	f := newCarFixture(t)
	ctx := context.Background()

	car, err := f.cars.CreateCar(ctx, f.alice, CarInput{Title: "Civic"}, nil)
	require.NoError(t, err)

	_, err = f.cars.DeleteCar(ctx, f.bob, car.ID)
	require.ErrorIs(t, err, repository.ErrCarNotFound)

	_, err = f.cars.DeleteCar(ctx, f.alice, 999)
	require.ErrorIs(t, err, repository.ErrCarNotFound)

	// the collection is unchanged
	cars, err := f.cars.ListCars(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, cars, 1)
}
