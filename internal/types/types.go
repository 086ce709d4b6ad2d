package types

import (
	"strconv"
	"strings"
)

type DealType string

const (
	DealRent DealType = "rent"
	DealSale DealType = "sale"
)

func ParseDealType(s string) (DealType, bool) {
	switch d := DealType(strings.TrimSpace(s)); d {
	case DealRent, DealSale:
		return d, true
	}
	return "", false
}

type HousingType string

const (
	HousingHouse     HousingType = "дом"
	HousingApartment HousingType = "квартира"
	HousingRoom      HousingType = "комната"
)

// HousingTypes lists the housing types in the order forms offer them.
var HousingTypes = []HousingType{HousingHouse, HousingApartment, HousingRoom}

func ParseHousingType(s string) (HousingType, bool) {
	switch h := HousingType(strings.TrimSpace(s)); h {
	case HousingHouse, HousingApartment, HousingRoom:
		return h, true
	}
	return "", false
}

type Role int

const (
	RoleUser  Role = 1
	RoleAdmin Role = 2
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	if r.IsAdmin() {
		return "admin"
	}
	return "user"
}

// RoomCount derives the stored room count of a listing. A room always
// counts as one; anything else takes the submitted value, or 0 when the
// value is not a non-negative integer.
func RoomCount(housing HousingType, raw string) int {
	if housing == HousingRoom {
		return 1
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type Account struct {
	Id          int
	Username    string
	Role        Role
	DisplayName string
	Avatar      string
}

type Listing struct {
	Id            int
	Image         string
	Price         int
	Rooms         int
	Description   string
	Details       string
	DealType      DealType
	HousingType   HousingType
	City          string
	Area          int
	Phone         string
	OwnerId       int
	OwnerUsername string
}
