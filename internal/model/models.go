package model

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Category{},
		&User{},
		&Role{},
		&UserRole{},
		&Property{},
		&PropertyImage{},
		&PropertyLocation{},
		&PropertyFeature{},
		&Lead{},
	}
}
