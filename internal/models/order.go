package models

import "time"

// OrderStatus is the lifecycle state of a laundry order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusReady      OrderStatus = "ready"
	StatusCompleted  OrderStatus = "completed"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusReady, StatusCompleted}

// Rank returns the position of s in the lifecycle, or -1 for unknown values.
func (s OrderStatus) Rank() int {
	for i, v := range OrderStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool { return s.Rank() >= 0 }

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

type Pickup struct {
	Date                string `json:"date"`
	TimeSlot            string `json:"timeSlot"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// ServiceItem is one line of an order, e.g. "Wash & Fold" x3 at 10.00.
type ServiceItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Order struct {
	ID               string        `json:"id"`
	CreatedAt        time.Time     `json:"createdAt,omitzero"`
	Status           OrderStatus   `json:"status"`
	StatusHistory    StatusHistory `json:"statusHistory"`
	ExpectedDelivery time.Time     `json:"expectedDelivery,omitzero"`
	TotalAmount      float64       `json:"totalAmount"`
	Customer         Customer      `json:"customer"`
	Pickup           Pickup        `json:"pickup"`
	Services         []ServiceItem `json:"services"`
}

// Clone deep-copies the order so snapshots never alias stored records.
func (o Order) Clone() Order {
	c := o
	c.StatusHistory = o.StatusHistory.Clone()
	if o.Services != nil {
		c.Services = make([]ServiceItem, len(o.Services))
		copy(c.Services, o.Services)
	}
	return c
}

// Subtotal sums quantity x price over all service lines.
func (o Order) Subtotal() float64 {
	var total float64
	for _, s := range o.Services {
		total += float64(s.Quantity) * s.Price
	}
	return total
}
