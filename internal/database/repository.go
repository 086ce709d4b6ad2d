package database

import (
	"context"

	"github.com/npezzotti/go-estate/internal/search"
)

type EstateRepository interface {
	Ping(ctx context.Context) error
	CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error)
	GetAccountById(ctx context.Context, accountId int) (Account, error)
	GetAccountByUsername(ctx context.Context, username string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	DeleteAccount(ctx context.Context, accountId int) error
	CreateListing(ctx context.Context, params CreateListingParams) (Listing, error)
	GetListingById(ctx context.Context, listingId int) (Listing, error)
	SearchListings(ctx context.Context, q search.Query) ([]Listing, error)
	ListListings(ctx context.Context) ([]Listing, error)
	DeleteListing(ctx context.Context, listingId int) error
	AddFavorite(ctx context.Context, accountId, listingId int) error
	RemoveFavorite(ctx context.Context, accountId, listingId int) error
	ListFavorites(ctx context.Context, accountId int) ([]Listing, error)
	IsFavorite(ctx context.Context, accountId, listingId int) (bool, error)
}
