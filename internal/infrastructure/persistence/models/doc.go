// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - catalog.go: products
//   - trade.go: orders, order_items, serialized_units
//
// Column names follow the SQL schema in migrations/, which is the source of truth
// in production. AutoMigrate is only used against sqlite in tests.
package models
