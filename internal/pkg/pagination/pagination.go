package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/distill-app/core/internal/pkg/response"
)

const (
	defaultSize = 10
	maxSize     = 100
)

// Query holds validated page/size parameters.
type Query struct {
	Page int
	Size int
}

// Offset returns the row offset of the current page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.Size
}

// FromContext reads page and size from the query string, clamping both
// to sane bounds.
func FromContext(c *gin.Context) Query {
	q := Query{
		Page: atoiOr(c.Query("page"), 1),
		Size: atoiOr(c.Query("size"), defaultSize),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Size < 1:
		q.Size = defaultSize
	case q.Size > maxSize:
		q.Size = maxSize
	}
	return q
}

// Paginate counts the scoped query, loads one page into dest, and
// returns the page metadata. Ordering is the caller's responsibility.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}, nil
}

func atoiOr(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
