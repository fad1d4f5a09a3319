package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPlaceNotFound        = errors.New("place not found")
	ErrRatingPlaceNotFound  = errors.New("rated place does not exist")
	ErrSlugConflict         = errors.New("could not assign a unique slug")
	ErrPlaceVersionConflict = errors.New("place was modified by another request")
	ErrForbidden            = errors.New("only the owner may modify this place")
)

// ValidationError lists every rejected input field with its reason
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = reason
}

// orNil returns nil when no field was rejected
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// PageOutOfRangeError is returned for a page past the last one
type PageOutOfRangeError struct {
	Page     int
	LastPage int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d is out of range, last page is %d", e.Page, e.LastPage)
}
