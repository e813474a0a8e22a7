package phrase

// rng is a splitmix64 generator. Generation threads an explicit rng value so
// that identical seeds always yield identical phrases, independent of any
// global random state.
type rng struct {
	state uint64
}

func newRNG(seed uint64) *rng {
	return &rng{state: seed}
}

func (r *rng) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a uniform value in [0, 1).
func (r *rng) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Intn returns a uniform value in [0, n). n must be positive.
func (r *rng) Intn(n int) int {
	if n <= 0 {
		panic("phrase: Intn with non-positive n")
	}
	return int(r.Uint64() % uint64(n))
}
