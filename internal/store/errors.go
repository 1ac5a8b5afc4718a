package store

import "errors"

var (
	ErrNotFound      = errors.New("entity not found")
	ErrSiteTypeInUse = errors.New("site type is referenced by closed projects")
)
