package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

var (
	//go:embed seed/customers.json
	customersRaw []byte

	//go:embed seed/orders.json
	ordersRaw []byte
)

// Seeded builds a store loaded with the embedded TechNova dataset. Each call
// returns an independent instance, so tests can mutate freely.
func Seeded() (*Store, error) {
	var customers []Customer
	if err := json.Unmarshal(customersRaw, &customers); err != nil {
		return nil, fmt.Errorf("unmarshal seed customers: %w", err)
	}

	var orders []Order
	if err := json.Unmarshal(ordersRaw, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal seed orders: %w", err)
	}

	return New(customers, orders), nil
}
