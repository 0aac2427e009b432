package tavolo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tavolo/tavolo"
)

func TestSameType(t *testing.T) {
	row := tavolo.NewRowType(
		tavolo.Field{Name: "a", Type: tavolo.TypeInt64},
		tavolo.Field{Name: "b", Type: tavolo.TypeString},
	)
	same := tavolo.NewRowType(
		tavolo.Field{Name: "a", Type: tavolo.TypeInt64},
		tavolo.Field{Name: "b", Type: tavolo.TypeString},
	)
	different := tavolo.NewRowType(
		tavolo.Field{Name: "a", Type: tavolo.TypeInt64},
	)
	assert.True(t, tavolo.SameType(tavolo.TypeInt64, tavolo.TypeInt64))
	assert.False(t, tavolo.SameType(tavolo.TypeInt64, tavolo.TypeFloat64))
	assert.True(t, tavolo.SameType(row, same))
	assert.False(t, tavolo.SameType(row, different))
	assert.False(t, tavolo.SameType(row, tavolo.TypeInt64))
}

func TestRowTypeString(t *testing.T) {
	row := tavolo.NewRowType(
		tavolo.Field{Name: "a", Type: tavolo.TypeInt64},
		tavolo.Field{Name: "b", Type: tavolo.TypeString},
	)
	assert.Equal(t, "row(a int64, b string)", row.String())
}

func TestSchemaLookup(t *testing.T) {
	schema := tavolo.NewSchema(
		tavolo.Field{Name: "a", Type: tavolo.TypeInt64},
		tavolo.Field{Name: "b", Type: tavolo.TypeString},
	)
	f, pos, ok := schema.LookupField("b")
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
	assert.Equal(t, tavolo.TypeString, f.Type)
	_, _, ok = schema.LookupField("c")
	assert.False(t, ok)
}
