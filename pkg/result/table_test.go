package result

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTableAddAndLen(t *testing.T) {
	assert := require.New(t)
	tbl := NewTable()
	tbl.Add(Mismatch{Op: "mul", Const: true, Width: 4})
	tbl.Add(Mismatch{Op: "add", Const: false, Width: 4})
	assert.Equal(2, tbl.Len())
}

func TestTableMismatchesSortedByOp(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Mismatch{Op: "urem", Const: true})
	tbl.Add(Mismatch{Op: "add", Const: false})
	tbl.Add(Mismatch{Op: "add", Const: true})

	want := []Mismatch{
		{Op: "add", Const: false},
		{Op: "add", Const: true},
		{Op: "urem", Const: true},
	}
	if diff := cmp.Diff(want, tbl.Mismatches()); diff != "" {
		t.Errorf("Mismatches() order mismatch (-want +got):\n%s", diff)
	}
}

func TestTableCheckedCounter(t *testing.T) {
	assert := require.New(t)
	tbl := NewTable()
	tbl.IncChecked(10)
	tbl.IncChecked(5)
	assert.Equal(int64(15), tbl.Checked())
}
