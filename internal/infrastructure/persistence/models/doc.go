// Package models maps the returns tables to GORM structs. Conversion to and
// from the domain happens here so the domain package never sees gorm tags.
package models
