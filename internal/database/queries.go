package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/npezzotti/go-estate/internal/search"
	"github.com/npezzotti/go-estate/internal/types"
)

const (
	accountColumns = "id, username, password_hash, role, display_name, avatar"
	listingColumns = "l.id, l.image, l.price, l.rooms, l.description, l.details, " +
		"l.deal_type, l.housing_type, l.city, l.area, l.phone, l.user_id"
	listingWithOwnerQuery = "SELECT " + listingColumns + ", a.username AS owner_username " +
		"FROM listings l LEFT JOIN accounts a ON a.id = l.user_id"
)

func (db *SQLRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	var id int
	err := db.conn.QueryRowxContext(
		ctx,
		db.conn.Rebind("INSERT INTO accounts (username, password_hash, role, display_name, avatar) "+
			"VALUES (?, ?, ?, ?, ?) RETURNING id"),
		params.Username,
		params.PasswordHash,
		int(params.Role),
		params.DisplayName,
		params.Avatar,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrUsernameTaken
		}
		return Account{}, err
	}

	return Account{
		Id:           id,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		DisplayName:  params.DisplayName,
		Avatar:       params.Avatar,
	}, nil
}

// EnsureAdmin creates an administrator account unless the username is
// already taken. It reports whether an account was created.
func (db *SQLRepository) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := db.conn.ExecContext(
		ctx,
		db.conn.Rebind("INSERT INTO accounts (username, password_hash, role) VALUES (?, ?, ?) "+
			"ON CONFLICT (username) DO NOTHING"),
		username,
		passwordHash,
		int(types.RoleAdmin),
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (db *SQLRepository) GetAccountById(ctx context.Context, accountId int) (Account, error) {
	var account Account
	err := db.conn.GetContext(
		ctx,
		&account,
		db.conn.Rebind("SELECT "+accountColumns+" FROM accounts WHERE id = ? LIMIT 1"),
		accountId,
	)

	return account, err
}

func (db *SQLRepository) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	var account Account
	err := db.conn.GetContext(
		ctx,
		&account,
		db.conn.Rebind("SELECT "+accountColumns+" FROM accounts WHERE username = ? LIMIT 1"),
		username,
	)

	return account, err
}

func (db *SQLRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	accounts := make([]Account, 0)
	err := db.conn.SelectContext(
		ctx,
		&accounts,
		"SELECT "+accountColumns+" FROM accounts ORDER BY id",
	)

	return accounts, err
}

// DeleteAccount removes an account. Its listings are kept with no owner and
// its favorites are removed by the foreign keys.
func (db *SQLRepository) DeleteAccount(ctx context.Context, accountId int) error {
	return db.deleteById(ctx, "DELETE FROM accounts WHERE id = ?", accountId)
}

func (db *SQLRepository) CreateListing(ctx context.Context, params CreateListingParams) (Listing, error) {
	var id int
	err := db.conn.QueryRowxContext(
		ctx,
		db.conn.Rebind("INSERT INTO listings (image, price, rooms, description, details, deal_type, "+
			"housing_type, city, area, phone, user_id) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id"),
		params.Image,
		params.Price,
		params.Rooms,
		params.Description,
		params.Details,
		string(params.DealType),
		string(params.HousingType),
		params.City,
		params.Area,
		params.Phone,
		params.OwnerId,
	).Scan(&id)
	if err != nil {
		return Listing{}, err
	}

	return Listing{
		Id:          id,
		Image:       params.Image,
		Price:       params.Price,
		Rooms:       params.Rooms,
		Description: params.Description,
		Details:     params.Details,
		DealType:    string(params.DealType),
		HousingType: string(params.HousingType),
		City:        params.City,
		Area:        params.Area,
		Phone:       params.Phone,
		OwnerId:     sql.NullInt64{Int64: int64(params.OwnerId), Valid: true},
	}, nil
}

func (db *SQLRepository) GetListingById(ctx context.Context, listingId int) (Listing, error) {
	var listing Listing
	err := db.conn.GetContext(
		ctx,
		&listing,
		db.conn.Rebind(listingWithOwnerQuery+" WHERE l.id = ? LIMIT 1"),
		listingId,
	)

	return listing, err
}

// SearchListings runs a query produced by search.Build. Only listings
// columns are in scope, so the predicate and ordering need no qualifiers.
func (db *SQLRepository) SearchListings(ctx context.Context, q search.Query) ([]Listing, error) {
	query := "SELECT " + listingColumns + " FROM listings l"
	if q.Where != "" {
		query += " WHERE " + q.Where
	}
	if q.OrderBy != "" {
		query += " ORDER BY " + q.OrderBy
	}

	listings := make([]Listing, 0)
	if err := db.conn.SelectContext(ctx, &listings, db.conn.Rebind(query), q.Args...); err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	return listings, nil
}

func (db *SQLRepository) ListListings(ctx context.Context) ([]Listing, error) {
	listings := make([]Listing, 0)
	err := db.conn.SelectContext(ctx, &listings, listingWithOwnerQuery+" ORDER BY l.id")

	return listings, err
}

func (db *SQLRepository) DeleteListing(ctx context.Context, listingId int) error {
	return db.deleteById(ctx, "DELETE FROM listings WHERE id = ?", listingId)
}

func (db *SQLRepository) deleteById(ctx context.Context, query string, id int) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(query), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// AddFavorite bookmarks a listing. Adding an existing favorite is a no-op.
func (db *SQLRepository) AddFavorite(ctx context.Context, accountId, listingId int) error {
	_, err := db.conn.ExecContext(
		ctx,
		db.conn.Rebind("INSERT INTO favorites (account_id, listing_id) VALUES (?, ?) "+
			"ON CONFLICT (account_id, listing_id) DO NOTHING"),
		accountId,
		listingId,
	)

	return err
}

// RemoveFavorite deletes a bookmark. Removing a missing favorite is a no-op.
func (db *SQLRepository) RemoveFavorite(ctx context.Context, accountId, listingId int) error {
	_, err := db.conn.ExecContext(
		ctx,
		db.conn.Rebind("DELETE FROM favorites WHERE account_id = ? AND listing_id = ?"),
		accountId,
		listingId,
	)

	return err
}

func (db *SQLRepository) ListFavorites(ctx context.Context, accountId int) ([]Listing, error) {
	listings := make([]Listing, 0)
	err := db.conn.SelectContext(
		ctx,
		&listings,
		db.conn.Rebind("SELECT "+listingColumns+" FROM favorites f "+
			"JOIN listings l ON l.id = f.listing_id WHERE f.account_id = ? ORDER BY f.id"),
		accountId,
	)

	return listings, err
}

func (db *SQLRepository) IsFavorite(ctx context.Context, accountId, listingId int) (bool, error) {
	var count int
	err := db.conn.GetContext(
		ctx,
		&count,
		db.conn.Rebind("SELECT COUNT(*) FROM favorites WHERE account_id = ? AND listing_id = ?"),
		accountId,
		listingId,
	)

	return count > 0, err
}
