// Package models contains GORM persistence models that map to database tables.
// Domain entities carry no GORM tags; each model converts to and from its
// domain type with ToDomain / FromDomain.
//
// Money is stored as integer kobo in *_minor columns and converted to naira
// decimals at the mapping boundary.
package models
