package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectStore(t *testing.T) {
	o := Object{Capacity: 100, Store: map[Resource]int{Energy: 30, "H": 20}}
	assert.Equal(t, 50, o.Used())
	assert.Equal(t, 50, o.Free())
	assert.Equal(t, 30, o.Held(Energy))

	over := Object{Capacity: 10, Store: map[Resource]int{Energy: 30}}
	assert.Equal(t, 0, over.Free())

	var none Object
	assert.Equal(t, 0, none.Used())
	assert.Equal(t, 0, none.Free())
}

func TestCodeTransient(t *testing.T) {
	assert.True(t, ErrTired.Transient())
	assert.True(t, ErrNotEnoughEnergy.Transient())
	assert.False(t, ErrInvalidTarget.Transient())
	assert.False(t, OK.Transient())
	assert.True(t, OK.OK())
}
