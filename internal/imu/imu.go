// Package imu parses the inertial measurement unit's text stream.
//
// Each sample is one space-delimited line:
//
//	IMU <qx> <qy> <qz> <qw> <gx> <gy> <gz> <ax> <ay> <az>
package imu

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tag is the leading token of an IMU line and the frame tag written to the
// telemetry log.
const Tag = "IMU"

// Frame is one IMU sample. A sub-vector whose fields were missing or not
// numeric is all zeros; the others keep their parsed values.
type Frame struct {
	Orientation quat.Number // Real=w, Imag=x, Jmag=y, Kmag=z
	Gyro        r3.Vec
	Accel       r3.Vec
}

// Values returns the frame in wire order: qx qy qz qw gx gy gz ax ay az.
func (f Frame) Values() [10]float64 {
	q := f.Orientation
	return [10]float64{
		q.Imag, q.Jmag, q.Kmag, q.Real,
		f.Gyro.X, f.Gyro.Y, f.Gyro.Z,
		f.Accel.X, f.Accel.Y, f.Accel.Z,
	}
}

// ParseLine parses one line. It reports false for lines without the IMU tag.
func ParseLine(line string) (Frame, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != Tag {
		return Frame{}, false
	}
	fields = fields[1:]

	var f Frame
	if q, ok := floats(fields, 0, 4); ok {
		f.Orientation = quat.Number{Imag: q[0], Jmag: q[1], Kmag: q[2], Real: q[3]}
	}
	if g, ok := floats(fields, 4, 3); ok {
		f.Gyro = r3.Vec{X: g[0], Y: g[1], Z: g[2]}
	}
	if a, ok := floats(fields, 7, 3); ok {
		f.Accel = r3.Vec{X: a[0], Y: a[1], Z: a[2]}
	}
	return f, true
}

// Parse returns the last IMU frame in lines, or nil if there is none.
// Earlier frames in the same batch are dropped.
func Parse(lines []string) *Frame {
	var last *Frame
	for _, line := range lines {
		if f, ok := ParseLine(line); ok {
			last = &f
		}
	}
	return last
}

// floats parses fields[off:off+n]; any missing or malformed field fails the
// whole sub-vector.
func floats(fields []string, off, n int) ([]float64, bool) {
	if off+n > len(fields) {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		v, err := strconv.ParseFloat(fields[off+i], 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
