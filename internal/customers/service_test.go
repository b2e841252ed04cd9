package customers

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memRepo struct {
	nextID    int64
	customers map[int64]Customer
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, customers: map[int64]Customer{}}
}

func (m *memRepo) List(ctx context.Context, query string, page, perPage int) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) &&
			!strings.Contains(strings.ToLower(c.Email), strings.ToLower(query)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	for _, existing := range m.customers {
		if existing.Email == c.Email {
			return Customer{}, ErrDuplicateEmail
		}
	}
	c.ID = m.nextID
	m.nextID++
	m.customers[c.ID] = c
	return c, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, updates map[string]any) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["email"]; ok {
		email := v.(string)
		for otherID, other := range m.customers {
			if otherID != id && other.Email == email {
				return Customer{}, ErrDuplicateEmail
			}
		}
		c.Email = email
	}
	if v, ok := updates["phone"]; ok {
		c.Phone = v.(string)
	}
	if v, ok := updates["notes"]; ok {
		c.Notes = v.(string)
	}
	m.customers[id] = c
	return c, nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.customers[id]; !ok {
		return ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func TestCreateAndSearch(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCustomerRequest{Name: "Jordan Blake", Email: "jordan@example.com"}, 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCustomerRequest{Name: "Priya Natarajan", Email: "priya@example.com"}, 1)
	require.NoError(t, err)

	items, pagination, err := svc.List(ctx, "priya", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Priya Natarajan", items[0].Name)
	require.Equal(t, 1, pagination.Total)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCustomerRequest{Name: "Jordan Blake", Email: "jordan@example.com"}, 1)
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateCustomerRequest{Name: "Other Jordan", Email: "jordan@example.com"}, 1)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestPartialUpdate(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCustomerRequest{
		Name:  "Marcus Webb",
		Email: "marcus@example.com",
		Phone: "555-0103",
	}, 1)
	require.NoError(t, err)

	phone := "555-0199"
	updated, err := svc.Update(ctx, created.ID, UpdateCustomerRequest{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "555-0199", updated.Phone)
	require.Equal(t, "Marcus Webb", updated.Name)
	require.Equal(t, "marcus@example.com", updated.Email)
}

func TestDeleteUnknownCustomer(t *testing.T) {
	svc := NewService(newMemRepo())
	require.ErrorIs(t, svc.Delete(context.Background(), 42), ErrNotFound)
}
