package queryengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntities(t *testing.T) {
	t.Run("mixed entities", func(t *testing.T) {
		entities := ExtractEntities("shuttle asrs with closed-top containers, see Table 2-1, 20 ft aisles, wet pipe")

		assert.Equal(t, []string{"shuttle"}, entities[CategoryASRSType])
		assert.Equal(t, []string{"closed-top"}, entities[CategoryContainer])
		assert.Equal(t, []string{"Table 2-1"}, entities[CategoryReference])
		assert.Equal(t, []string{"20 ft"}, entities[CategoryMeasurement])
		assert.Contains(t, entities[CategoryProtection], "wet")
	})

	t.Run("absent categories are missing not empty", func(t *testing.T) {
		entities := ExtractEntities("hello there")

		_, ok := entities[CategoryASRSType]
		assert.False(t, ok)
		assert.Empty(t, entities)
	})

	t.Run("first surface form", func(t *testing.T) {
		entities := ExtractEntities("shuttle and mini-load comparison")

		assert.Equal(t, "shuttle", entities.First(CategoryASRSType))
		assert.Equal(t, "", entities.First(CategoryReference))
	})
}
