// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package slice_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsechat/pulse/pkg/slice"
)

/*
TestMap verifies element-wise transformation and nil passthrough.
*/
func TestMap(t *testing.T) {
	result := slice.Map([]int{1, 2, 3}, strconv.Itoa)
	assert.Equal(t, []string{"1", "2", "3"}, result)

	assert.Nil(t, slice.Map(nil, strconv.Itoa))
}

/*
TestFilter verifies predicate filtering.
*/
func TestFilter(t *testing.T) {
	even := slice.Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, []int{2, 4}, even)

	none := slice.Filter([]int{1, 3}, func(n int) bool { return n%2 == 0 })
	assert.Empty(t, none)
}

/*
TestReduce verifies accumulation.
*/
func TestReduce(t *testing.T) {
	sum := slice.Reduce([]int{1, 2, 3, 4}, 0, func(acc, n int) int { return acc + n })
	assert.Equal(t, 10, sum)
}

/*
TestPartition verifies the split keeps relative order in both halves.
*/
func TestPartition(t *testing.T) {
	matched, rest := slice.Partition([]int{1, 2, 3, 4, 5}, func(n int) bool { return n%2 == 1 })

	assert.Equal(t, []int{1, 3, 5}, matched)
	assert.Equal(t, []int{2, 4}, rest)

	matched, rest = slice.Partition(nil, func(n int) bool { return true })
	assert.Nil(t, matched)
	assert.Nil(t, rest)
}
