package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NoData fills raster cells outside the glacier mask.
var NoData = math.NaN()

// Domain is an ordered list of elevation offsets from the station. Weights is
// optional; nil means every member counts the same.
type Domain struct {
	Elevations []float64
	Weights    []float64
}

// Elevations builds an equal-weight domain.
func Elevations(zs ...float64) Domain {
	return Domain{Elevations: zs}
}

// Offsets builds a domain from absolute elevations and the station elevation.
func Offsets(elevations []float64, reference float64) Domain {
	zs := make([]float64, len(elevations))
	for i, z := range elevations {
		zs[i] = z - reference
	}
	return Domain{Elevations: zs}
}

func (d Domain) Len() int {
	return len(d.Elevations)
}

func (d Domain) check() error {
	if len(d.Elevations) == 0 {
		return ErrEmptyDomain
	}
	if d.Weights != nil && len(d.Weights) != len(d.Elevations) {
		return &ShapeError{
			Op:   "domain weights",
			Want: fmt.Sprintf("%d weights", len(d.Elevations)),
			Got:  fmt.Sprintf("%d", len(d.Weights)),
			Err:  ErrShapeMismatch,
		}
	}
	return nil
}

// Raster is an elevation grid with a glacier mask of the same shape. Reference
// is the station elevation.
type Raster struct {
	Elevation *mat.Dense
	Mask      [][]bool
	Reference float64
}

func (r Raster) Dims() (rows, cols int) {
	if r.Elevation == nil {
		return 0, 0
	}
	return r.Elevation.Dims()
}

// Domain selects the masked cells in row-major order. cells holds the flat
// index (row*cols + col) of each selected cell.
func (r Raster) Domain() (d Domain, cells []int, err error) {
	rows, cols := r.Dims()
	if len(r.Mask) != rows {
		return Domain{}, nil, r.shapeError(len(r.Mask), -1)
	}
	for i, row := range r.Mask {
		if len(row) != cols {
			return Domain{}, nil, r.shapeError(len(r.Mask), len(row))
		}
		for j, selected := range row {
			if !selected {
				continue
			}
			d.Elevations = append(d.Elevations, r.Elevation.At(i, j)-r.Reference)
			cells = append(cells, i*cols+j)
		}
	}
	if len(cells) == 0 {
		return Domain{}, nil, ErrEmptyDomain
	}
	return d, cells, nil
}

// Scatter writes a field computed on Domain back into a raster of r's shape.
func (r Raster) Scatter(field []float64, cells []int) *mat.Dense {
	rows, cols := r.Dims()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = NoData
	}
	for k, c := range cells {
		data[c] = field[k]
	}
	return mat.NewDense(rows, cols, data)
}

func (r Raster) shapeError(maskRows, maskCols int) error {
	rows, cols := r.Dims()
	got := fmt.Sprintf("%d rows", maskRows)
	if maskCols >= 0 {
		got = fmt.Sprintf("%dx%d", maskRows, maskCols)
	}
	return &ShapeError{
		Op:   "raster mask",
		Want: fmt.Sprintf("%dx%d", rows, cols),
		Got:  got,
		Err:  ErrShapeMismatch,
	}
}
