package database

import (
	"database/sql"

	"github.com/npezzotti/go-estate/internal/types"
)

type Account struct {
	Id           int        `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	Role         types.Role `db:"role"`
	DisplayName  string     `db:"display_name"`
	Avatar       string     `db:"avatar"`
}

type Listing struct {
	Id          int           `db:"id"`
	Image       string        `db:"image"`
	Price       int           `db:"price"`
	Rooms       int           `db:"rooms"`
	Description string        `db:"description"`
	Details     string        `db:"details"`
	DealType    string        `db:"deal_type"`
	HousingType string        `db:"housing_type"`
	City        string        `db:"city"`
	Area        int           `db:"area"`
	Phone       string        `db:"phone"`
	OwnerId     sql.NullInt64 `db:"user_id"`
	// only populated by queries that join the owning account
	OwnerUsername sql.NullString `db:"owner_username"`
}

type CreateAccountParams struct {
	Username     string
	PasswordHash string
	Role         types.Role
	DisplayName  string
	Avatar       string
}

type CreateListingParams struct {
	Image       string
	Price       int
	Rooms       int
	Description string
	Details     string
	DealType    types.DealType
	HousingType types.HousingType
	City        string
	Area        int
	Phone       string
	OwnerId     int
}
