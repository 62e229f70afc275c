package utils_test

import (
	"fmt"
	"testing"
	"time"

	"exoplanet-backend/internal/core/utils"

	"github.com/stretchr/testify/assert"
)

func TestRunInPool(t *testing.T) {
	worker := func(i int) (string, error) {
		if i%4 == 3 {
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return "", fmt.Errorf("error")
		}
		return fmt.Sprintf("%d-%d", i, i), nil
	}

	queue := make(chan int, 10)
	for i := 0; i < 10; i++ {
		queue <- i
	}
	close(queue)

	output := make(chan utils.CompletedTask[int, string], 10)

	utils.RunInPool(worker, queue, output, 5)

	success, failed := 0, 0
	for result := range output {
		if result.Error != nil {
			assert.Equal(t, 3, result.Input%4)
			failed++
		} else {
			assert.Equal(t, fmt.Sprintf("%d-%d", result.Input, result.Input), result.Result)
			success++
		}
	}

	assert.Equal(t, 8, success)
	assert.Equal(t, 2, failed)
}

func TestRunInPoolEmptyQueue(t *testing.T) {
	queue := make(chan int)
	close(queue)

	output := make(chan utils.CompletedTask[int, int])
	utils.RunInPool(func(i int) (int, error) { return i, nil }, queue, output, 4)

	count := 0
	for range output {
		count++
	}
	assert.Equal(t, 0, count)
}
