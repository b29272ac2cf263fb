package sweep

import (
	"fmt"
	"strconv"
)

// Precision is a points-to precision level of the analysis, ordered from
// least to most context-sensitive. Its numeric value is the id passed to
// the analysis tool.
type Precision int

const (
	// TypeBased merges all allocations of a type into one abstract object.
	TypeBased Precision = iota
	// InstanceBased distinguishes allocation sites.
	InstanceBased
	// ObjectSensitive qualifies allocation sites by the receiver object.
	ObjectSensitive
	// N1ObjectSensitive is object sensitivity bounded to one level.
	N1ObjectSensitive
	// UnlimitedObjectSensitive is object sensitivity without a bound.
	UnlimitedObjectSensitive
	// N1CallStack qualifies allocation sites by the last call site.
	N1CallStack
	// N2CallStack qualifies allocation sites by the last two call sites.
	N2CallStack
	// N3CallStack qualifies allocation sites by the last three call sites.
	N3CallStack
)

var precisionNames = [...]string{
	"TYPE_BASED",
	"INSTANCE_BASED",
	"OBJECT_SENSITIVE",
	"N1_OBJECT_SENSITIVE",
	"UNLIMITED_OBJECT_SENSITIVE",
	"N1_CALL_STACK",
	"N2_CALL_STACK",
	"N3_CALL_STACK",
}

// Precisions returns every level in sweep order.
func Precisions() []Precision {
	out := make([]Precision, len(precisionNames))
	for i := range out {
		out[i] = Precision(i)
	}
	return out
}

// String returns the level name used in report file names.
func (p Precision) String() string {
	if p < 0 || int(p) >= len(precisionNames) {
		return "Precision(" + strconv.Itoa(int(p)) + ")"
	}
	return precisionNames[p]
}

// Valid reports whether p is a known level.
func (p Precision) Valid() bool {
	return p >= 0 && int(p) < len(precisionNames)
}

// ParsePrecision accepts a level name or its numeric id.
func ParsePrecision(s string) (Precision, error) {
	for i, n := range precisionNames {
		if n == s {
			return Precision(i), nil
		}
	}
	if id, err := strconv.Atoi(s); err == nil && Precision(id).Valid() {
		return Precision(id), nil
	}
	return 0, fmt.Errorf("unknown precision %q", s)
}

// Cell is one point of the sweep: an exception mode and a precision level.
type Cell struct {
	IgnoreExceptions bool
	Precision        Precision
}

// ExceptionTag returns "noExcep" when exceptions are ignored, else "excep".
func (c Cell) ExceptionTag() string {
	if c.IgnoreExceptions {
		return "noExcep"
	}
	return "excep"
}

// ReportName returns the cell's report file name, e.g.
// N1_CALL_STACK_noExcep_sysout.txt.
func (c Cell) ReportName() string {
	return c.Precision.String() + "_" + c.ExceptionTag() + "_sysout.txt"
}

// Args returns the flags that select this cell in the analysis tool.
func (c Cell) Args() []string {
	return []string{
		"ignoreExceptions=" + strconv.FormatBool(c.IgnoreExceptions),
		"initialPrecision=" + strconv.Itoa(int(c.Precision)),
	}
}

// String returns "<PRECISION>/<excep|noExcep>".
func (c Cell) String() string {
	return fmt.Sprintf("%s/%s", c.Precision, c.ExceptionTag())
}

// Matrix returns all 16 cells in sweep order: ignoring exceptions first,
// then honoring them, each over every precision level.
func Matrix() []Cell {
	cells := make([]Cell, 0, 2*len(precisionNames))
	for _, ignore := range []bool{true, false} {
		for _, p := range Precisions() {
			cells = append(cells, Cell{IgnoreExceptions: ignore, Precision: p})
		}
	}
	return cells
}
