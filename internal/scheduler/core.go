package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

type individual interface {
	score() float64
	discard()
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func workerCount(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

func eliteCount(populationSize int, ratio float64) int {
	return max(1, int(float64(populationSize)*ratio))
}

// evaluatePopulation 并行计算适应度
// 每个个体的评估互不依赖，随机数只在串行的繁殖阶段使用，因此结果与并行度无关
// 上下文取消后尚未开始计算的个体被丢弃，返回上下文的错误
func evaluatePopulation[T individual](ctx context.Context, pop []T, workers int, calc func(T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))

	for _, ch := range pop {
		ch := ch
		g.Go(func() error {
			if gctx.Err() != nil {
				ch.discard()
				return nil
			}
			return calc(ch)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// interrupted 判断错误是否由上下文取消或超时引起
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// 锦标赛选择：不放回地随机抽取 size 个个体，取适应度最高者
func selectByTournament[T individual](pop []T, size int, rng *rand.Rand) T {
	size = min(max(size, 1), len(pop))
	contestants := rng.Perm(len(pop))[:size]

	best := pop[contestants[0]]
	for _, idx := range contestants[1:] {
		if pop[idx].score() > best.score() {
			best = pop[idx]
		}
	}
	return best
}

// 按适应度从高到低排序，适应度相同时保持原有顺序
func sortByFitness[T individual](pop []T) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].score() > pop[j].score()
	})
}

// 从父本中随机选择两个不同的个体
func pickTwo[T any](parents []T, rng *rand.Rand) (T, T) {
	i := rng.Intn(len(parents))
	j := rng.Intn(len(parents) - 1)
	if j >= i {
		j++
	}
	return parents[i], parents[j]
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// budgetExceeded 检查上下文是否已取消或超出墙钟时间预算
func budgetExceeded(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && time.Now().After(deadline)
}
