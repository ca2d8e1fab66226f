// Package raster reads and writes ESRI ASCII grids: a short header followed
// by the cell values in row-major order, first row northernmost.
package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const DefaultNoData = -9999.0

var ErrHeader = errors.New("raster: bad ascii grid header")

type Header struct {
	NCols, NRows int
	XLL, YLL     float64

	// Center is true when XLL/YLL locate the lower-left cell center instead
	// of its corner.
	Center   bool
	CellSize float64

	NoData    float64
	HasNoData bool
}

// Grid holds the cell values, no-data cells are NaN.
type Grid struct {
	Header
	Data *mat.Dense
}

// Like returns a grid with g's georeference around data.
func (g *Grid) Like(data *mat.Dense) *Grid {
	h := g.Header
	if !h.HasNoData {
		h.NoData, h.HasNoData = DefaultNoData, true
	}
	return &Grid{Header: h, Data: data}
}

func ReadASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	g := &Grid{}
	seen := map[string]bool{}
	var pending string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			pending = sc.Text()
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: %s has no value", ErrHeader, key)
		}
		val := sc.Text()
		if err := g.set(key, val); err != nil {
			return nil, err
		}
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if !seen[k] {
			return nil, fmt.Errorf("%w: missing %s", ErrHeader, k)
		}
	}
	if g.NCols <= 0 || g.NRows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrHeader, g.NRows, g.NCols)
	}

	n := g.NRows * g.NCols
	data := make([]float64, 0, n)
	next := func() (string, bool) {
		if pending != "" {
			s := pending
			pending = ""
			return s, true
		}
		if sc.Scan() {
			return sc.Text(), true
		}
		return "", false
	}
	for len(data) < n {
		s, ok := next()
		if !ok {
			if err := sc.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("raster: %d values, want %d", len(data), n)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("raster: value %d: %w", len(data), err)
		}
		if g.HasNoData && v == g.NoData {
			v = math.NaN()
		}
		data = append(data, v)
	}
	g.Data = mat.NewDense(g.NRows, g.NCols, data)
	return g, nil
}

func (g *Grid) set(key, val string) error {
	var err error
	switch key {
	case "ncols":
		g.NCols, err = strconv.Atoi(val)
	case "nrows":
		g.NRows, err = strconv.Atoi(val)
	case "xllcorner", "xllcenter":
		g.XLL, err = strconv.ParseFloat(val, 64)
		g.Center = key == "xllcenter"
	case "yllcorner", "yllcenter":
		g.YLL, err = strconv.ParseFloat(val, 64)
	case "cellsize":
		g.CellSize, err = strconv.ParseFloat(val, 64)
	case "nodata_value":
		g.NoData, err = strconv.ParseFloat(val, 64)
		g.HasNoData = true
	default:
		return fmt.Errorf("%w: unknown key %q", ErrHeader, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHeader, key, err)
	}
	return nil
}

// WriteASCII writes g, NaN cells as the no-data value.
func WriteASCII(w io.Writer, g *Grid) error {
	rows, cols := g.Data.Dims()
	bw := bufio.NewWriter(w)

	ll := "corner"
	if g.Center {
		ll = "center"
	}
	nodata := g.NoData
	if !g.HasNoData {
		nodata = DefaultNoData
	}
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", cols, rows)
	fmt.Fprintf(bw, "xll%s %s\nyll%s %s\n", ll, fmtFloat(g.XLL), ll, fmtFloat(g.YLL))
	fmt.Fprintf(bw, "cellsize %s\nNODATA_value %s\n", fmtFloat(g.CellSize), fmtFloat(nodata))

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			v := g.Data.At(i, j)
			if math.IsNaN(v) {
				v = nodata
			}
			bw.WriteString(fmtFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Mask marks the cells whose value is exactly 1.
func Mask(g *Grid) [][]bool {
	rows, cols := g.Data.Dims()
	mask := make([][]bool, rows)
	for i := range mask {
		mask[i] = make([]bool, cols)
		for j := range mask[i] {
			mask[i][j] = g.Data.At(i, j) == 1
		}
	}
	return mask
}

func Open(path string) (*Grid, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	g, err := ReadASCII(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(log.Fields{
		"path":     path,
		"rows":     g.NRows,
		"cols":     g.NCols,
		"cellsize": g.CellSize,
	}).Info("grid loaded")
	return g, nil
}

func Create(path string, g *Grid) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteASCII(fp, g); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
