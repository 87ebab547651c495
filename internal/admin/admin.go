// Package admin holds the in-memory listing logic of the admin dashboard:
// search, pagination and summary counts over collections fetched once per
// render.
package admin

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/alecgard/mbnakom/internal/backend"
)

// DefaultPageSize is the number of rows per dashboard table page.
const DefaultPageSize = 5

// Fields returns the searchable text of an item.
type Fields[T any] func(T) []string

// UserFields searches users by full name, email and phone number.
func UserFields(u backend.User) []string {
	return []string{u.FullName(), u.Email, u.PhoneNumber}
}

// AppointmentFields searches appointments by full name, email, phone, service
// type, property type and status.
func AppointmentFields(a backend.Appointment) []string {
	return []string{a.FullName(), a.Email, a.Phone, a.ServiceType, a.PropertyType, a.Status.String()}
}

// Filter keeps the items where any field contains query, ignoring case. An
// empty query returns items unchanged.
func Filter[T any](items []T, query string, fields Fields[T]) []T {
	if query == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, f := range fields(item) {
			if f != "" && strings.Contains(fold.String(f), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Paginate returns page (1-based) of items, at most size long. Pages past the
// end are empty.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if page > PageCount(len(items), size) {
		return []T{}
	}
	start := (page - 1) * size
	end := len(items)
	if end-start > size {
		end = start + size
	}
	return items[start:end]
}

// PageCount is the number of pages needed for n items.
func PageCount(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n <= 0 {
		return 0
	}
	return (n-1)/size + 1
}

// Page is one rendered page of a filtered list.
type Page[T any] struct {
	Items     []T
	Query     string
	Page      int
	PageCount int
	// Total counts the filtered items, not the raw collection.
	Total int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.PageCount }

// Pages lists the page numbers for a pager.
func (p Page[T]) Pages() []int {
	out := make([]int, p.PageCount)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// List filters items by query and then paginates the result. page is
// clamped into range.
func List[T any](items []T, query string, fields Fields[T], page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	filtered := Filter(items, query, fields)
	count := PageCount(len(filtered), size)
	if page > count {
		page = count
	}
	if page < 1 {
		page = 1
	}
	return Page[T]{
		Items:     Paginate(filtered, page, size),
		Query:     query,
		Page:      page,
		PageCount: count,
		Total:     len(filtered),
	}
}

// Stats are the dashboard summary counts.
type Stats struct {
	TotalUsers           int
	TotalAppointments    int
	UpcomingAppointments int
	NewUsersThisMonth    int
}

// ComputeStats counts confirmed appointments whose preferred date is after
// now as upcoming. Users have no creation date on the wire, so "new this
// month" matches the date of birth against the current month and year.
func ComputeStats(users []backend.User, appointments []backend.Appointment, now time.Time) Stats {
	s := Stats{TotalUsers: len(users), TotalAppointments: len(appointments)}
	for _, a := range appointments {
		if a.Status != backend.StatusConfirmed {
			continue
		}
		if d, ok := a.PreferredDay(); ok && d.After(now) {
			s.UpcomingAppointments++
		}
	}
	for _, u := range users {
		if d, ok := u.BirthDate(); ok && d.Month() == now.Month() && d.Year() == now.Year() {
			s.NewUsersThisMonth++
		}
	}
	return s
}
