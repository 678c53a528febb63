package utils_test

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"langid-backend/internal/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInPool(t *testing.T) {
	worker := func(i int) (string, error) {
		if i%4 == 3 {
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return "", fmt.Errorf("error")
		}
		return fmt.Sprintf("%d-%d", i, i), nil
	}

	queue := make(chan utils.Task[int], 10)
	for i := 0; i < 10; i++ {
		queue <- utils.Task[int]{Index: i, Input: i}
	}
	close(queue)

	output := make(chan utils.CompletedTask[string], 10)
	utils.RunInPool(worker, queue, output, 5)

	success, errors := 0, 0
	for result := range output {
		if result.Error != nil {
			errors++
			assert.Equal(t, 3, result.Index%4)
		} else {
			success++
			assert.Equal(t, fmt.Sprintf("%d-%d", result.Index, result.Index), result.Result)
		}
	}

	assert.Equal(t, 8, success)
	assert.Equal(t, 2, errors)
}

func TestMapOrderedPreservesOrder(t *testing.T) {
	inputs := []string{"gamma", "alpha", "beta", "delta", "epsilon"}

	var done atomic.Int32
	out, err := utils.MapOrdered(inputs, func(s string) (string, error) {
		time.Sleep(time.Duration(len(s)) * time.Millisecond)
		return strings.ToUpper(s), nil
	}, 3, func() { done.Add(1) })
	require.NoError(t, err)

	assert.Equal(t, []string{"GAMMA", "ALPHA", "BETA", "DELTA", "EPSILON"}, out)
	assert.Equal(t, int32(len(inputs)), done.Load())
}

func TestMapOrderedReportsFirstError(t *testing.T) {
	_, err := utils.MapOrdered([]int{0, 1, 2, 3}, func(i int) (int, error) {
		if i >= 2 {
			return 0, fmt.Errorf("bad input %d", i)
		}
		return i, nil
	}, 4, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2")
}

func TestMapOrderedEmpty(t *testing.T) {
	out, err := utils.MapOrdered(nil, func(i int) (int, error) { return i, nil }, 4, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
