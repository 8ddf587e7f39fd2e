package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/tanpawarit/technova-support-bot/agent/contract"
)

// LookupKey is the customer attribute a lookup may match on.
type LookupKey string

const (
	KeyEmail    LookupKey = "email"
	KeyPhone    LookupKey = "phone"
	KeyUsername LookupKey = "username"
)

func (k LookupKey) Valid() bool {
	switch k {
	case KeyEmail, KeyPhone, KeyUsername:
		return true
	}
	return false
}

type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
}

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Price tolerates both number and numeric-string encodings in the seed data
// and is a plain float64 everywhere past the load boundary.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*p = Price(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse price %q: %w", v, err)
		}
		*p = Price(parsed)
	default:
		return fmt.Errorf("unsupported price type %T", raw)
	}
	return nil
}

type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Product    string      `json:"product"`
	Quantity   int         `json:"quantity"`
	Price      Price       `json:"price"`
	Status     OrderStatus `json:"status"`
}

// CancelOutcome is the result of a cancellation attempt.
type CancelOutcome string

const (
	CancelOK             CancelOutcome = "cancelled"
	CancelAlreadyShipped CancelOutcome = "already_shipped"
	CancelNotFound       CancelOutcome = "not_found"
)

// Store holds the seeded customers and orders for the process lifetime.
// Order status is the only mutable field; the mutex keeps the cancel
// read-check-write atomic should a second session ever share the store.
type Store struct {
	mu        sync.Mutex
	customers []Customer
	orders    []*Order
}

func New(customers []Customer, orders []Order) *Store {
	s := &Store{customers: customers}
	s.orders = make([]*Order, len(orders))
	for i := range orders {
		o := orders[i]
		s.orders[i] = &o
	}
	return s
}

// FindCustomer scans for the first customer whose key attribute equals
// value. A missing match returns (nil, nil); only a key outside the declared
// enum is an error.
func (s *Store) FindCustomer(key LookupKey, value string) (*Customer, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %s", contract.ErrInvalidKey, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		c := s.customers[i]
		var attr string
		switch key {
		case KeyEmail:
			attr = c.Email
		case KeyPhone:
			attr = c.Phone
		case KeyUsername:
			attr = c.Username
		}
		if attr == value {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

// FindOrderByID returns a copy of the order, or nil when absent.
func (s *Store) FindOrderByID(orderID string) *Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(orderID)
}

func (s *Store) findLocked(orderID string) *Order {
	for _, o := range s.orders {
		if o.ID == orderID {
			found := *o
			return &found
		}
	}
	return nil
}

// OrdersForCustomer returns the customer's orders in insertion order;
// empty for an unknown customer id.
func (s *Store) OrdersForCustomer(customerID string) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out
}

// CancelOrder moves a Processing order to Cancelled. Any other status is
// refused; the transition is one-directional and never reversed.
func (s *Store) CancelOrder(orderID string) CancelOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID != orderID {
			continue
		}
		if o.Status != StatusProcessing {
			return CancelAlreadyShipped
		}
		o.Status = StatusCancelled
		return CancelOK
	}
	return CancelNotFound
}
