package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/technova-support-bot/agent/contract"
	storex "github.com/tanpawarit/technova-support-bot/agent/store"
)

const (
	ToolGetUser           = "get_user"
	ToolGetOrderByID      = "get_order_by_id"
	ToolGetCustomerOrders = "get_customer_orders"
	ToolCancelOrder       = "cancel_order"
)

// CancelPublisher receives a notification after an order is cancelled.
// Publish failures must not leak into the conversation.
type CancelPublisher interface {
	OrderCancelled(ctx context.Context, order storex.Order) error
}

type handler func(ctx context.Context, input map[string]any) (string, error)

// entry binds one external tool declaration to its handler so the schema
// sent to the model and the dispatch table cannot drift apart.
type entry struct {
	spec contract.ToolSpec
	run  handler
}

// Dispatcher maps tool names to data store operations.
type Dispatcher struct {
	store     *storex.Store
	publisher CancelPublisher
	entries   map[string]entry
	specs     []contract.ToolSpec
}

var _ contract.Dispatcher = (*Dispatcher)(nil)

// Option customizes the Dispatcher.
type Option func(*Dispatcher)

func WithCancelPublisher(p CancelPublisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

func New(store *storex.Store, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("data store is required")
	}

	d := &Dispatcher{store: store}
	for _, opt := range opts {
		opt(d)
	}

	table := []entry{
		{
			spec: contract.ToolSpec{
				Name:        ToolGetUser,
				Description: "Looks up a user by email, phone, or username.",
				InputSchema: contract.InputSchema{
					Type: "object",
					Properties: map[string]contract.Property{
						"key": {
							Type:        "string",
							Enum:        []string{"email", "phone", "username"},
							Description: "The attribute to search for a user by (email, phone, or username).",
						},
						"value": {
							Type:        "string",
							Description: "The value to match for the specified attribute.",
						},
					},
					Required: []string{"key", "value"},
				},
			},
			run: d.getUser,
		},
		{
			spec: contract.ToolSpec{
				Name:        ToolGetOrderByID,
				Description: "Retrieves the details of a specific order based on the order ID. Returns the order ID, product name, quantity, price, and order status.",
				InputSchema: contract.InputSchema{
					Type: "object",
					Properties: map[string]contract.Property{
						"order_id": {
							Type:        "string",
							Description: "The unique identifier for the order.",
						},
					},
					Required: []string{"order_id"},
				},
			},
			run: d.getOrderByID,
		},
		{
			spec: contract.ToolSpec{
				Name:        ToolGetCustomerOrders,
				Description: "Retrieves the list of orders belonging to a user based on a user's customer id.",
				InputSchema: contract.InputSchema{
					Type: "object",
					Properties: map[string]contract.Property{
						"customer_id": {
							Type:        "string",
							Description: "The customer_id belonging to the user.",
						},
					},
					Required: []string{"customer_id"},
				},
			},
			run: d.getCustomerOrders,
		},
		{
			spec: contract.ToolSpec{
				Name:        ToolCancelOrder,
				Description: "Cancels an order based on a provided order_id. Only orders that are 'processing' can be cancelled.",
				InputSchema: contract.InputSchema{
					Type: "object",
					Properties: map[string]contract.Property{
						"order_id": {
							Type:        "string",
							Description: "The order_id pertaining to a particular order.",
						},
					},
					Required: []string{"order_id"},
				},
			},
			run: d.cancelOrder,
		},
	}

	d.entries = make(map[string]entry, len(table))
	for _, e := range table {
		if e.spec.Name == "" || e.run == nil {
			return nil, fmt.Errorf("tool table entry is incomplete: %+v", e.spec)
		}
		if _, dup := d.entries[e.spec.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", e.spec.Name)
		}
		d.entries[e.spec.Name] = e
		d.specs = append(d.specs, e.spec)
	}

	return d, nil
}

// Specs returns the tool declarations in registration order, for the
// inference request.
func (d *Dispatcher) Specs() []contract.ToolSpec {
	return d.specs
}

// Dispatch runs the named tool. The input map is forwarded untouched; the
// loop performs no validation before dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, input map[string]any) (string, error) {
	e, ok := d.entries[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", contract.ErrUnknownTool, name)
	}
	return e.run(ctx, input)
}

func (d *Dispatcher) getUser(_ context.Context, input map[string]any) (string, error) {
	key := storex.LookupKey(stringArg(input, "key"))
	value := stringArg(input, "value")

	customer, err := d.store.FindCustomer(key, value)
	if err != nil {
		return "", err
	}
	if customer == nil {
		return fmt.Sprintf("Couldn't find a user with %s of %s", key, value), nil
	}
	return renderJSON(customer)
}

func (d *Dispatcher) getOrderByID(_ context.Context, input map[string]any) (string, error) {
	orderID := stringArg(input, "order_id")
	order := d.store.FindOrderByID(orderID)
	if order == nil {
		return fmt.Sprintf("Couldn't find an order with id %s", orderID), nil
	}
	return renderJSON(order)
}

func (d *Dispatcher) getCustomerOrders(_ context.Context, input map[string]any) (string, error) {
	orders := d.store.OrdersForCustomer(stringArg(input, "customer_id"))
	if orders == nil {
		orders = []storex.Order{}
	}
	return renderJSON(orders)
}

func (d *Dispatcher) cancelOrder(ctx context.Context, input map[string]any) (string, error) {
	orderID := stringArg(input, "order_id")
	switch d.store.CancelOrder(orderID) {
	case storex.CancelOK:
		d.publishCancelled(ctx, orderID)
		return "Cancelled the order", nil
	case storex.CancelAlreadyShipped:
		return "Order has already shipped.  Can't cancel it.", nil
	default:
		return "Can't find that order!", nil
	}
}

func (d *Dispatcher) publishCancelled(ctx context.Context, orderID string) {
	if d.publisher == nil {
		return
	}
	order := d.store.FindOrderByID(orderID)
	if order == nil {
		return
	}
	if err := d.publisher.OrderCancelled(ctx, *order); err != nil {
		log.Warn().Err(err).Str("order_id", orderID).Msg("order cancelled event publish failed")
	}
}

func stringArg(input map[string]any, name string) string {
	if input == nil {
		return ""
	}
	v, _ := input[name].(string)
	return v
}

func renderJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("render tool result: %w", err)
	}
	return string(data), nil
}
