package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kedai/internal/core/entity"
	"kedai/internal/core/id"
)

type mockEntity struct {
	entity.Base
	Name    string `db:"name" json:"name"`
	Ignored string `db:"-" json:"ignored"`
	NoTag   string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockEntity]()

	expected := []string{"id", "version", "created_at", "updated_at", "name"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expected))
}

func TestStructToMap(t *testing.T) {
	e := mockEntity{
		Base:    entity.NewBase(),
		Name:    "100 Plus",
		Ignored: "skip me",
		NoTag:   "skip me too",
	}
	e.Version = 5

	m := StructToMap(e)

	assert.Equal(t, e.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "100 Plus", m["name"])
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 5)
}

func TestStructToMap_Pointer(t *testing.T) {
	e := &mockEntity{Base: entity.Base{ID: id.New()}, Name: "Milo"}

	m := StructToMap(e)

	assert.Equal(t, e.ID, m["id"])
	assert.Equal(t, "Milo", m["name"])
}
