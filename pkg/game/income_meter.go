package game

// IncomeMeter 滑动窗口的每秒废料收入统计
//
// 窗口由若干个一秒的桶组成；Advance 推进时间，Record 记入当前桶。
// Rate 只统计已完整结束的桶，避免当前桶未满时数值抖动。
type IncomeMeter struct {
	buckets []float64
	head    int     // 当前桶下标
	filled  int     // 已结束的桶数，最多 len(buckets)-1
	elapsed float64 // 当前桶已经过的秒数
}

// NewIncomeMeter 创建统计器
//
// 参数：
//   - windowSeconds: 窗口长度（秒），小于 1 时按 1 处理
func NewIncomeMeter(windowSeconds int) *IncomeMeter {
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	return &IncomeMeter{
		buckets: make([]float64, windowSeconds+1),
	}
}

// Record 记入一笔收入，非正数被忽略
func (m *IncomeMeter) Record(amount float64) {
	if amount > 0 {
		m.buckets[m.head] += amount
	}
}

// Advance 推进时间
func (m *IncomeMeter) Advance(dt float64) {
	if !(dt > 0) {
		return
	}
	m.elapsed += dt

	// 跨过整个窗口时直接清空
	if steps := int(m.elapsed); steps >= len(m.buckets) {
		for i := range m.buckets {
			m.buckets[i] = 0
		}
		m.filled = len(m.buckets) - 1
		m.elapsed -= float64(steps)
		return
	}

	for m.elapsed >= 1 {
		m.elapsed--
		m.head = (m.head + 1) % len(m.buckets)
		m.buckets[m.head] = 0
		if m.filled < len(m.buckets)-1 {
			m.filled++
		}
	}
}

// Rate 返回窗口内的平均每秒收入
func (m *IncomeMeter) Rate() float64 {
	if m.filled == 0 {
		return 0
	}
	total := 0.0
	for i := 1; i <= m.filled; i++ {
		idx := (m.head - i + len(m.buckets)) % len(m.buckets)
		total += m.buckets[idx]
	}
	return total / float64(m.filled)
}

// Reset 清空统计
func (m *IncomeMeter) Reset() {
	for i := range m.buckets {
		m.buckets[i] = 0
	}
	m.head = 0
	m.filled = 0
	m.elapsed = 0
}
