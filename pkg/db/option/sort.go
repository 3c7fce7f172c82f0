package option

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownSortField = errors.New("unknown_sort_field")

// Sort is a validated sort key: an enumerated field plus a direction.
type Sort[F ~string] struct {
	Field F
	Desc  bool
}

// ParseSort turns "field" or "-field" into a Sort restricted to allowed.
// An empty key yields nil; an unknown key yields ErrUnknownSortField.
func ParseSort[F ~string](raw string, allowed ...F) (*Sort[F], error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return nil, nil
	}
	desc := false
	if strings.HasPrefix(key, "-") {
		desc = true
		key = strings.TrimSpace(key[1:])
	} else if strings.HasPrefix(key, "+") {
		key = strings.TrimSpace(key[1:])
	}
	for _, field := range allowed {
		if string(field) == key {
			return &Sort[F]{Field: field, Desc: desc}, nil
		}
	}
	return nil, ErrUnknownSortField
}

// String renders the sort back into its "-field" form.
func (s *Sort[F]) String() string {
	if s == nil {
		return ""
	}
	if s.Desc {
		return "-" + string(s.Field)
	}
	return string(s.Field)
}

// WithSort orders by the sort field of table, then by table.id ascending so
// the result order is deterministic. A nil sort orders by id only.
func WithSort[F ~string](table string, sort *Sort[F]) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if sort != nil && string(sort.Field) != "id" {
			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Table: table, Name: string(sort.Field)},
				Desc:   sort.Desc,
			})
		}
		desc := sort != nil && string(sort.Field) == "id" && sort.Desc
		return db.Order(clause.OrderByColumn{
			Column: clause.Column{Table: table, Name: "id"},
			Desc:   desc,
		})
	})
}
