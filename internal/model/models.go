package model

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&Session{},
		&Listing{},
		&Call{},
		&Quote{},
	}
}
