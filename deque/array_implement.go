package deque

import "glacier/model"

// ArrDeque is a fixed-capacity ring over one array.
type ArrDeque struct {
	// backing array, its length is the capacity
	arr []model.Sample

	// index of the oldest sample
	start int

	// number of samples
	size int
}

var _ Deque = (*ArrDeque)(nil)

func NewArrDeque(capacity int) *ArrDeque {
	if capacity < 1 {
		capacity = 1
	}
	return &ArrDeque{
		arr: make([]model.Sample, capacity),
	}
}

func (ad *ArrDeque) Size() int {
	return ad.size
}

func (ad *ArrDeque) Capacity() int {
	return len(ad.arr)
}

func (ad *ArrDeque) index(i int) int {
	return (ad.start + i) % len(ad.arr)
}

func (ad *ArrDeque) TraverseRange(start, end int, f func(i int, s model.Sample)) {
	if start < 0 {
		start = 0
	}
	if end > ad.size {
		end = ad.size
	}
	for i := start; i < end; i++ {
		f(i, ad.arr[ad.index(i)])
	}
}

func (ad *ArrDeque) AddLast(s model.Sample) bool {
	if ad.IsFull() {
		return false
	}
	ad.arr[ad.index(ad.size)] = s
	ad.size++
	return true
}

func (ad *ArrDeque) RemoveFirst() (model.Sample, bool) {
	if ad.IsEmpty() {
		return model.Sample{}, false
	}
	s := ad.arr[ad.start]
	ad.start = (ad.start + 1) % len(ad.arr)
	ad.size--
	return s, true
}

func (ad *ArrDeque) Push(s model.Sample) (model.Sample, bool) {
	var evicted model.Sample
	ok := false
	if ad.IsFull() {
		evicted, ok = ad.RemoveFirst()
	}
	ad.AddLast(s)
	return evicted, ok
}

func (ad *ArrDeque) Clear() {
	ad.start, ad.size = 0, 0
}

func (ad *ArrDeque) Forcing() model.Forcing {
	return ad.forcing(0, ad.size)
}

func (ad *ArrDeque) Last(n int) model.Forcing {
	if n <= 0 || n > ad.size {
		n = ad.size
	}
	return ad.forcing(ad.size-n, ad.size)
}

func (ad *ArrDeque) forcing(start, end int) model.Forcing {
	n := end - start
	f := model.Forcing{
		Time:          make([]float64, n),
		Temperature:   make([]float64, n),
		Precipitation: make([]float64, n),
	}
	ad.TraverseRange(start, end, func(i int, s model.Sample) {
		f.Time[i-start] = s.Time
		f.Temperature[i-start] = s.Temperature
		f.Precipitation[i-start] = s.Precipitation
	})
	return f
}

func (ad *ArrDeque) IsFull() bool {
	return ad.size == len(ad.arr)
}

func (ad *ArrDeque) IsEmpty() bool {
	return ad.size == 0
}
