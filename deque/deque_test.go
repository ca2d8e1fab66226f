package deque

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glacier/model"
)

func sample(i int) model.Sample {
	return model.Sample{Time: float64(i), Temperature: float64(i) - 5, Precipitation: 0.001 * float64(i)}
}

func TestArrDeque_AddRemove(t *testing.T) {
	d := NewArrDeque(3)
	assert.True(t, d.IsEmpty())
	assert.Equal(t, 3, d.Capacity())

	for i := 0; i < 3; i++ {
		require.True(t, d.AddLast(sample(i)))
	}
	assert.True(t, d.IsFull())
	assert.False(t, d.AddLast(sample(3)))

	s, ok := d.RemoveFirst()
	require.True(t, ok)
	assert.Equal(t, sample(0), s)
	assert.Equal(t, 2, d.Size())
	assert.Equal(t, []float64{1, 2}, d.Forcing().Time)

	d.RemoveFirst()
	d.RemoveFirst()
	_, ok = d.RemoveFirst()
	assert.False(t, ok)
	assert.True(t, d.IsEmpty())
}

func TestArrDeque_PushEvictsOldest(t *testing.T) {
	d := NewArrDeque(4)
	for i := 0; i < 4; i++ {
		_, evicted := d.Push(sample(i))
		assert.False(t, evicted)
	}
	for i := 4; i < 10; i++ {
		old, evicted := d.Push(sample(i))
		require.True(t, evicted)
		assert.Equal(t, sample(i-4), old)
	}
	assert.Equal(t, []float64{6, 7, 8, 9}, d.Forcing().Time)
}

func TestArrDeque_TraverseRange(t *testing.T) {
	d := NewArrDeque(5)
	for i := 0; i < 8; i++ {
		d.Push(sample(i))
	}
	var got []int
	d.TraverseRange(1, 3, func(i int, s model.Sample) {
		got = append(got, int(s.Time))
	})
	assert.Equal(t, []int{4, 5}, got)

	got = got[:0]
	d.TraverseRange(-2, 99, func(i int, s model.Sample) {
		got = append(got, i)
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestArrDeque_Forcing(t *testing.T) {
	d := NewArrDeque(3)
	for i := 0; i < 5; i++ {
		d.Push(sample(i))
	}
	f := d.Forcing()
	assert.Equal(t, []float64{2, 3, 4}, f.Time)
	assert.Equal(t, []float64{-3, -2, -1}, f.Temperature)
	assert.InDeltaSlice(t, []float64{0.002, 0.003, 0.004}, f.Precipitation, 1e-15)

	d.Clear()
	assert.True(t, d.IsEmpty())
	assert.Equal(t, 0, d.Forcing().Len())
}

func TestArrDeque_Last(t *testing.T) {
	d := NewArrDeque(4)
	for i := 0; i < 6; i++ {
		d.Push(sample(i))
	}

	f := d.Last(2)
	assert.Equal(t, []float64{4, 5}, f.Time)
	assert.Equal(t, []float64{-1, 0}, f.Temperature)

	for _, n := range []int{0, -1, 4, 10} {
		assert.Equal(t, d.Forcing(), d.Last(n), "n %d", n)
	}
}

func BenchmarkArrDeque_Push(b *testing.B) {
	d := NewArrDeque(8760)
	for i := 0; i < b.N; i++ {
		d.Push(sample(i))
	}
}

func BenchmarkArrDeque_Forcing(b *testing.B) {
	d := NewArrDeque(8760)
	for i := 0; i < 8760; i++ {
		d.AddLast(sample(i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = d.Forcing()
	}
}
