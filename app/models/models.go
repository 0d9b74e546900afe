package models

// All returns every model managed by this service, in dependency order.
func All() []interface{} {
	return []interface{}{
		&PaddleEvent{},
		&Customer{},
		&Product{},
		&Purchase{},
		&PurchaseMetadata{},
	}
}
