// Package search turns the optional listing filters submitted on the
// browse pages into a parameterized predicate.
//
// User input only ever reaches the store as a bound value. The sole text
// taken from the request is the sort field and direction, and those are
// looked up in a fixed allow-list before they are placed in the query.
package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/npezzotti/go-estate/internal/types"
)

const (
	defaultSortColumn = "id"
	defaultSortOrder  = "ASC"
)

var sortColumns = map[string]string{
	"id":    "id",
	"price": "price",
	"rooms": "rooms",
	"type":  "housing_type",
}

var sortOrders = map[string]string{
	"asc":  "ASC",
	"desc": "DESC",
}

// Filter holds the optional search inputs. A nil pointer or an empty
// string means the filter is absent.
type Filter struct {
	MinPrice    *int
	MaxPrice    *int
	Rooms       *int
	City        string
	HousingType types.HousingType
	DealType    types.DealType
	SortField   string
	SortOrder   string
}

// Query is a predicate with its bound values and an ORDER BY clause. The
// Nth "?" in Where is bound to Args[N-1].
type Query struct {
	Where   string
	Args    []any
	OrderBy string
}

// ParseFilter reads the filter fields from a submitted form. Values that
// are missing or cannot be parsed are treated as absent.
func ParseFilter(form url.Values) Filter {
	f := Filter{
		MinPrice:  parseInt(form.Get("min_price")),
		MaxPrice:  parseInt(form.Get("max_price")),
		Rooms:     parseInt(form.Get("rooms")),
		City:      strings.TrimSpace(form.Get("city")),
		SortField: strings.TrimSpace(form.Get("sort_by")),
		SortOrder: strings.TrimSpace(form.Get("order")),
	}

	if h, ok := types.ParseHousingType(form.Get("housing_type")); ok {
		f.HousingType = h
	}

	if d, ok := types.ParseDealType(form.Get("deal_type")); ok {
		f.DealType = d
	}

	return f
}

func parseInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// Build conjoins the base deal type predicate with one clause per present
// filter.
func Build(base types.DealType, f Filter) Query {
	clauses := []string{"deal_type = ?"}
	args := []any{string(base)}

	add := func(clause string, arg any) {
		clauses = append(clauses, clause)
		args = append(args, arg)
	}

	if f.MinPrice != nil {
		add("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= ?", *f.MaxPrice)
	}
	// a room always has exactly one room, so a room count filter is
	// meaningless for it
	if f.Rooms != nil && f.HousingType != types.HousingRoom {
		add("rooms = ?", *f.Rooms)
	}
	if f.City != "" {
		add("city = ?", f.City)
	}
	if f.HousingType != "" {
		add("housing_type = ?", string(f.HousingType))
	}
	if f.DealType != "" {
		add("deal_type = ?", string(f.DealType))
	}

	return Query{
		Where:   strings.Join(clauses, " AND "),
		Args:    args,
		OrderBy: orderBy(f.SortField, f.SortOrder),
	}
}

func orderBy(field, order string) string {
	column, ok := sortColumns[strings.ToLower(field)]
	if !ok {
		column = defaultSortColumn
	}

	dir, ok := sortOrders[strings.ToLower(order)]
	if !ok {
		dir = defaultSortOrder
	}

	return column + " " + dir
}
