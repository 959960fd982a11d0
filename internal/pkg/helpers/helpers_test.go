package helpers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCalculateOffsetLimit(t *testing.T) {
	offset, limit := CalculateOffsetLimit(3, 20)
	assert.Equal(t, uint64(40), offset)
	assert.Equal(t, uint64(20), limit)

	offset, limit = CalculateOffsetLimit(0, 1000)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, uint64(DefaultPageSize), limit)
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(25, 2, 10)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)

	info = NewPaginationInfo(0, 1, 10)
	assert.Equal(t, 1, info.TotalPages)

	info = NewPaginationInfo(5, 9, 10)
	assert.Equal(t, 1, info.CurrentPage)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=4&size=500", nil)

	page, size := ParsePaginationParams(c)
	assert.Equal(t, 4, page)
	assert.Equal(t, DefaultPageSize, size)
}

func TestCalculateSliceIndices(t *testing.T) {
	start, end := CalculateSliceIndices(2, 10, 15)
	assert.Equal(t, 10, start)
	assert.Equal(t, 15, end)

	start, end = CalculateSliceIndices(5, 10, 15)
	assert.Equal(t, 15, start)
	assert.Equal(t, 15, end)
}

func TestCurrentSchoolYear(t *testing.T) {
	assert.Equal(t, "2024-2025", CurrentSchoolYear(time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2023-2024", CurrentSchoolYear(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}
