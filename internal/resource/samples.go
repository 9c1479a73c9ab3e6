package resource

import "time"

// User, Order, OrderItem and Tag are the sample annotated resource types
// exercised by the collector, sync engine, hydrator and relation-loader
// tests, and by the `demo` CLI command.
type User struct {
	Base      `table:"users"`
	ID        int64     `db:"id" pk:"auto"`
	Email     string    `db:"email" type:"varchar" length:"255" filterable:"true"`
	Name      string    `db:"name" type:"varchar" length:"255"`
	CreatedAt time.Time `db:"created_at" type:"timestamp" default:"CURRENT_TIMESTAMP"`

	Orders []Order `relation:"hasMany" target:"Order" fk:"user_id"`
}

func (u User) Defaults() []any {
	return []any{
		&User{ID: 1, Email: "admin@semitexa.dev", Name: "Admin"},
		&User{ID: 2, Email: "demo@semitexa.dev", Name: "Demo User"},
	}
}

type Order struct {
	Base      `table:"orders"`
	ID        int64      `db:"id" pk:"auto"`
	UserID    int64      `db:"user_id" type:"int" filterable:"true"`
	Total     float64    `db:"total" type:"decimal" precision:"10" scale:"2"`
	CreatedAt time.Time  `db:"created_at" type:"timestamp" default:"CURRENT_TIMESTAMP"`

	User  *User       `relation:"belongsTo" target:"User" fk:"user_id"`
	Items []OrderItem `relation:"hasMany" target:"OrderItem" fk:"order_id"`
	Tags  []Tag       `relation:"manyToMany" target:"Tag" fk:"order_id" pivot:"order_tags" relatedKey:"tag_id"`
}

type OrderItem struct {
	Base     `table:"order_items"`
	ID       int64   `db:"id" pk:"auto"`
	OrderID  int64   `db:"order_id" type:"int"`
	SKU      string  `db:"sku" type:"varchar" length:"64"`
	Quantity int     `db:"quantity" type:"int"`
	Price    float64 `db:"price" type:"decimal" precision:"10" scale:"2"`

	Order *Order `relation:"belongsTo" target:"Order" fk:"order_id"`
}

type Tag struct {
	Base `table:"tags"`
	ID   int64  `db:"id" pk:"auto"`
	Name string `db:"name" type:"varchar" length:"64" filterable:"true"`

	Orders []Order `relation:"manyToMany" target:"Order" fk:"tag_id" pivot:"order_tags" relatedKey:"order_id"`
}

func init() {
	Register("User", User{})
	Register("Order", Order{})
	Register("OrderItem", OrderItem{})
	Register("Tag", Tag{})
}
