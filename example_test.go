package rmindex_test

import (
	"fmt"

	"github.com/katalvlaran/rmindex"
	"github.com/katalvlaran/rmindex/rmkey"
)

// ExampleIndex demonstrates the minimal insert/get round trip: register a
// worker, insert a key, and read it back.
func ExampleIndex() {
	idx := rmindex.NewIndex[string](1)
	defer idx.Close()

	w := idx.RegisterWorker()

	if _, _, err := idx.Insert(rmkey.Key{42}, "answer", w, nil); err != nil {
		fmt.Println(err)
		return
	}

	v, _, err := idx.Get(rmkey.Key{42}, w, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(v)
	// Output: answer
}

// ExampleIndex_BulkLoad demonstrates loading a sorted run of keys in one
// call and reading one back by lower bound.
func ExampleIndex_BulkLoad() {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()

	keys := []rmkey.Key{{1}, {2}, {3}, {4}, {5}}
	vals := []int{10, 20, 30, 40, 50}
	if err := idx.BulkLoad(keys, vals); err != nil {
		fmt.Println(err)
		return
	}

	w := idx.RegisterWorker()
	it := idx.LowerBound(rmkey.Key{3}, w)
	defer it.Close()

	if it.Next() {
		fmt.Println(it.Key(), it.Value())
	}
	// Output: [3] 30
}
