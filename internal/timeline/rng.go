package timeline

// XorShift is a seeded xorshift128 generator. The same seed always yields the
// same sequence, on every machine and in every process.
//
// It is used to order the anonymous name pool and nothing else; no
// distribution properties beyond reproducibility are promised.
type XorShift struct {
	x, y, z, w uint32
}

// NewXorShift creates a generator whose fourth state word is the seed.
func NewXorShift(seed int64) *XorShift {
	return &XorShift{
		x: 123456789,
		y: 362436069,
		z: 521288629,
		w: uint32(seed),
	}
}

// Next advances the generator and returns the new fourth state word.
func (r *XorShift) Next() uint32 {
	t := r.x ^ (r.x << 11)
	r.x = r.y
	r.y = r.z
	r.z = r.w
	r.w = r.w ^ (r.w >> 19) ^ (t ^ (t >> 8))
	return r.w
}

// Int32 returns Next reinterpreted as a signed value. The sign is what a
// comparator consumes.
func (r *XorShift) Int32() int32 {
	return int32(r.Next())
}
