package builtin

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/zeebo/xxh3"

	"crmetl/pkg/records"
)

// DropDuplicates removes rows that repeat an earlier row on every listed
// column. The earliest occurrence wins and input order is preserved.
//
// Rows are bucketed by an xxh3 digest of their typed values; rows sharing a
// digest are compared value by value, so a hash collision never drops a row.
// nil equals nil, and times compare by instant.
type DropDuplicates struct {
	Columns []string
}

func (d DropDuplicates) Apply(in []records.Record) []records.Record {
	if len(in) < 2 {
		return in
	}
	h := xxh3.New()
	seen := make(map[uint64][]records.Record, len(in))
	out := in[:0]
	for _, rec := range in {
		h.Reset()
		d.hashRow(h, rec)
		sum := h.Sum64()

		dup := false
		for _, prev := range seen[sum] {
			if d.sameRow(prev, rec) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[sum] = append(seen[sum], rec)
		out = append(out, rec)
	}
	return out
}

func (d DropDuplicates) hashRow(h *xxh3.Hasher, rec records.Record) {
	var buf [9]byte
	for _, c := range d.Columns {
		switch v := rec[c].(type) {
		case nil:
			buf[0] = 0
			h.Write(buf[:1])
		case string:
			buf[0] = 1
			h.Write(buf[:1])
			h.WriteString(v)
		case float64:
			buf[0] = 2
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v))
			h.Write(buf[:])
		case int:
			buf[0] = 3
			binary.LittleEndian.PutUint64(buf[1:], uint64(v))
			h.Write(buf[:])
		case bool:
			buf[0], buf[1] = 4, 0
			if v {
				buf[1] = 1
			}
			h.Write(buf[:2])
		case time.Time:
			buf[0] = 5
			binary.LittleEndian.PutUint64(buf[1:], uint64(v.UnixNano()))
			h.Write(buf[:])
		default:
			buf[0] = 6
			h.Write(buf[:1])
			h.WriteString(fmt.Sprint(v))
		}
		buf[0] = 0x1f
		h.Write(buf[:1])
	}
}

func (d DropDuplicates) sameRow(a, b records.Record) bool {
	for _, c := range d.Columns {
		if !sameValue(a[c], b[c]) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	case string, int, bool:
		return a == b
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}
