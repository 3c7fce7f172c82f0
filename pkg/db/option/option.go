package option

import (
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// Chain applies opts in order.
func Chain(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		db = opt.Apply(db)
	}
	return db
}

const likeEscape = "!"

// escapeLike neutralises LIKE metacharacters in user supplied text.
func escapeLike(value string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(value)
}

// ContainsFold matches rows whose column contains value, ignoring case in
// any script. Empty values are a no-op.
func ContainsFold(column, value string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		escape := " ESCAPE '" + likeEscape + "'"
		switch dialectName(db) {
		case "postgres":
			return db.Where(column+" ILIKE ?"+escape, "%"+escapeLike(value)+"%")
		case "sqlite":
			pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
			return db.Where(foldFunc+"("+column+") LIKE ?"+escape, pattern)
		default:
			pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
			return db.Where("LOWER("+column+") LIKE ?"+escape, pattern)
		}
	})
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return ""
	}
	return db.Dialector.Name()
}

// HasPrefix matches rows whose column starts with value. Empty values are a no-op.
func HasPrefix(column, value string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(column+" LIKE ? ESCAPE '"+likeEscape+"'", escapeLike(value)+"%")
	})
}

// Gte adds an inclusive lower bound when value is non-nil.
func Gte[T any](column string, value *T) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if value == nil {
			return db
		}
		return db.Where(column+" >= ?", *value)
	})
}

// Lte adds an inclusive upper bound when value is non-nil.
func Lte[T any](column string, value *T) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if value == nil {
			return db
		}
		return db.Where(column+" <= ?", *value)
	})
}

// Lt adds an exclusive upper bound when value is non-nil.
func Lt[T any](column string, value *T) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if value == nil {
			return db
		}
		return db.Where(column+" < ?", *value)
	})
}
