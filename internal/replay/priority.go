package replay

import (
	"container/heap"
	"fmt"
	"math/rand"
	"sort"

	"exprsearch/internal/expr"
)

// PriorityEntry is one stored top-K candidate together with the encoded row
// used to rebuild auxiliary training batches.
type PriorityEntry struct {
	Key      string
	Reward   float64
	Row      expr.Row
	OnPolicy bool

	seq     int
	heapIdx int
}

// PriorityBuffer keeps the all-time top-K candidates by reward. Eviction
// removes the lowest reward first; among equal rewards the oldest entry goes
// first, so the most recently inserted survives. Keys are unique: a
// duplicate is only re-admitted when it improves its stored reward.
type PriorityBuffer struct {
	capacity int
	entries  entryHeap
	byKey    map[string]*PriorityEntry
	seq      int
	rng      *rand.Rand
}

func NewPriorityBuffer(capacity int, seed int64) (*PriorityBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("priority buffer capacity must be > 0")
	}
	return &PriorityBuffer{
		capacity: capacity,
		byKey:    make(map[string]*PriorityEntry),
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

func (p *PriorityBuffer) Len() int { return len(p.entries) }

// MinReward is the lowest stored reward, the admission bar once full.
func (p *PriorityBuffer) MinReward() (float64, bool) {
	if len(p.entries) == 0 {
		return 0, false
	}
	return p.entries[0].Reward, true
}

// PushBest offers every row of the batch to the buffer.
func (p *PriorityBuffer) PushBest(b Batch, cands []*expr.Candidate) {
	for i, c := range cands {
		reward := c.Reward
		if i < len(b.Rewards) {
			reward = b.Rewards[i]
		}
		p.push(c.Key, reward, b.Row(i), b.OnPolicy[i])
	}
}

func (p *PriorityBuffer) push(key string, reward float64, row expr.Row, onPolicy bool) {
	if existing, ok := p.byKey[key]; ok {
		if existing.Reward >= reward {
			return
		}
		existing.Reward = reward
		existing.Row = row
		heap.Fix(&p.entries, existing.heapIdx)
		return
	}
	p.seq++
	e := &PriorityEntry{Key: key, Reward: reward, Row: row, OnPolicy: onPolicy, seq: p.seq}
	if len(p.entries) < p.capacity {
		heap.Push(&p.entries, e)
		p.byKey[key] = e
		return
	}
	min := p.entries[0]
	if reward < min.Reward {
		return
	}
	delete(p.byKey, min.Key)
	p.entries[0] = e
	e.heapIdx = 0
	heap.Fix(&p.entries, 0)
	p.byKey[key] = e
}

// SampleBatch draws n rows uniformly from the stored entries, with
// replacement only when n exceeds the buffer size.
func (p *PriorityBuffer) SampleBatch(n int) (Batch, error) {
	if len(p.entries) == 0 {
		return Batch{}, fmt.Errorf("sample from empty priority buffer")
	}
	if n <= 0 {
		return Batch{}, fmt.Errorf("sample size must be > 0")
	}
	picks := make([]*PriorityEntry, 0, n)
	if n > len(p.entries) {
		for i := 0; i < n; i++ {
			picks = append(picks, p.entries[p.rng.Intn(len(p.entries))])
		}
	} else {
		perm := p.rng.Perm(len(p.entries))
		for _, idx := range perm[:n] {
			picks = append(picks, p.entries[idx])
		}
	}
	rows := make([]expr.Row, len(picks))
	rewards := make([]float64, len(picks))
	onPolicy := make([]bool, len(picks))
	for i, e := range picks {
		rows[i] = e.Row
		rewards[i] = e.Reward
		onPolicy[i] = e.OnPolicy
	}
	return FromRows(rows, rewards, onPolicy), nil
}

// InOrder snapshots the stored entries from highest to lowest reward, for
// end-of-run reporting.
func (p *PriorityBuffer) InOrder() []PriorityEntry {
	out := make([]PriorityEntry, len(p.entries))
	for i, e := range p.entries {
		out[i] = *e
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Reward == out[b].Reward {
			return out[a].seq > out[b].seq
		}
		return out[a].Reward > out[b].Reward
	})
	return out
}

// entryHeap is a min-heap by reward; equal rewards order oldest first so
// ties evict the oldest.
type entryHeap []*PriorityEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Reward == h[j].Reward {
		return h[i].seq < h[j].seq
	}
	return h[i].Reward < h[j].Reward
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*PriorityEntry)
	e.heapIdx = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
