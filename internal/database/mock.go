package database

import (
	"context"

	"github.com/npezzotti/go-estate/internal/search"
	"github.com/stretchr/testify/mock"
)

type MockEstateRepository struct {
	mock.Mock
}

func (m *MockEstateRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockEstateRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockEstateRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	args := m.Called(ctx, username, passwordHash)
	return args.Bool(0), args.Error(1)
}
func (m *MockEstateRepository) GetAccountById(ctx context.Context, accountId int) (Account, error) {
	args := m.Called(ctx, accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockEstateRepository) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockEstateRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Account), args.Error(1)
}
func (m *MockEstateRepository) DeleteAccount(ctx context.Context, accountId int) error {
	args := m.Called(ctx, accountId)
	return args.Error(0)
}
func (m *MockEstateRepository) CreateListing(ctx context.Context, params CreateListingParams) (Listing, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Listing), args.Error(1)
}
func (m *MockEstateRepository) GetListingById(ctx context.Context, listingId int) (Listing, error) {
	args := m.Called(ctx, listingId)
	return args.Get(0).(Listing), args.Error(1)
}
func (m *MockEstateRepository) SearchListings(ctx context.Context, q search.Query) ([]Listing, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Listing), args.Error(1)
}
func (m *MockEstateRepository) ListListings(ctx context.Context) ([]Listing, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Listing), args.Error(1)
}
func (m *MockEstateRepository) DeleteListing(ctx context.Context, listingId int) error {
	args := m.Called(ctx, listingId)
	return args.Error(0)
}
func (m *MockEstateRepository) AddFavorite(ctx context.Context, accountId, listingId int) error {
	args := m.Called(ctx, accountId, listingId)
	return args.Error(0)
}
func (m *MockEstateRepository) RemoveFavorite(ctx context.Context, accountId, listingId int) error {
	args := m.Called(ctx, accountId, listingId)
	return args.Error(0)
}
func (m *MockEstateRepository) ListFavorites(ctx context.Context, accountId int) ([]Listing, error) {
	args := m.Called(ctx, accountId)
	return args.Get(0).([]Listing), args.Error(1)
}
func (m *MockEstateRepository) IsFavorite(ctx context.Context, accountId, listingId int) (bool, error) {
	args := m.Called(ctx, accountId, listingId)
	return args.Bool(0), args.Error(1)
}
