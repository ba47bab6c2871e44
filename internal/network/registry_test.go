package network_test

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/network"
)

func TestRegistry(t *testing.T) {
	r := network.NewRegistry()

	_, err := r.Get(network.DefaultSessionID)
	assert.ErrorIs(t, err, network.ErrSessionNotFound)

	a := newSession(t)
	b := newSession(t)
	r.SetDefault(a)
	r.Put(b)

	got, err := r.Get(network.DefaultSessionID)
	assert.Nil(t, err)
	assert.Equal(t, a.ID, got.ID)

	got, err = r.Get(b.ID)
	assert.Nil(t, err)
	assert.Equal(t, b.ID, got.ID)

	// 按创建时间排序
	summaries := r.List()
	assert.Len(t, summaries, 2)
	assert.Equal(t, a.ID, summaries[0].ID)

	// 替换默认会话不影响已取出的旧会话
	r.SetDefault(b)
	got, err = r.Get(network.DefaultSessionID)
	assert.Nil(t, err)
	assert.Equal(t, b.ID, got.ID)
	_, err = a.PlanRoute(1, 4, 120)
	assert.Nil(t, err)

	// 删除默认会话
	assert.True(t, r.Delete(network.DefaultSessionID))
	_, err = r.Get(network.DefaultSessionID)
	assert.ErrorIs(t, err, network.ErrSessionNotFound)
	_, err = r.Get(b.ID)
	assert.ErrorIs(t, err, network.ErrSessionNotFound)

	assert.False(t, r.Delete(b.ID))
	assert.True(t, r.Delete(a.ID))
	assert.Empty(t, r.List())
}

func TestPriorityQueue(t *testing.T) {
	// 建堆
	pq := make(network.PriorityQueue, 0)
	heap.Init(&pq)
	heap.Push(&pq, &network.Item{Value: 3, Priority: 10, TieBreak: 5})
	heap.Push(&pq, &network.Item{Value: 1, Priority: 5, TieBreak: 9})
	heap.Push(&pq, &network.Item{Value: 4, Priority: 10, TieBreak: 2})
	heap.Push(&pq, &network.Item{Value: 2, Priority: 10, TieBreak: 2})

	// 依次出队：先按 Priority，再按 TieBreak，最后按 Value
	want := []int64{1, 2, 4, 3}
	for _, v := range want {
		item := heap.Pop(&pq).(*network.Item)
		assert.Equal(t, v, item.Value)
		assert.Equal(t, -1, item.Index)
	}
	assert.Equal(t, 0, pq.Len())
}
