package tree

import (
	"regexp"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var numericID = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Collators carry per-call buffers and are not safe for concurrent use.
var collators = sync.Pool{
	New: func() interface{} {
		return collate.New(language.English, collate.IgnoreCase, collate.Numeric)
	},
}

// Compare orders node ids. Two purely numeric ids compare by value; anything
// else compares case-insensitively with embedded digit runs compared by value,
// so "n2" sorts before "n10".
func Compare(a, b string) int {
	if numericID.MatchString(a) && numericID.MatchString(b) {
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}

	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}

// Sort orders ids in place with Compare. Ids that compare equal keep their
// relative order.
func Sort(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return Compare(ids[i], ids[j]) < 0
	})
}
