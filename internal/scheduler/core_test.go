package scheduler

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatePopulationCancelled(t *testing.T) {
	pop := make([]*Chromosome, 5)
	for i := range pop {
		pop[i] = &Chromosome{}
	}

	// 第一个个体计算时取消，之后的个体不再计算
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	err := evaluatePopulation(ctx, pop, 1, func(ch *Chromosome) error {
		calls++
		ch.fitness = -1
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, interrupted(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, -1.0, pop[0].fitness)
	for _, ch := range pop[1:] {
		assert.Equal(t, -math.MaxFloat64, ch.fitness)
	}

	// 未取消时全部计算
	for i := range pop {
		pop[i] = &Chromosome{}
	}
	err = evaluatePopulation(context.Background(), pop, 4, func(ch *Chromosome) error {
		ch.fitness = 1
		return nil
	})
	assert.Nil(t, err)
	for _, ch := range pop {
		assert.Equal(t, 1.0, ch.fitness)
	}
}
