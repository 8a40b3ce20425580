package utils

// HashCombine uses the C++ boost algorithm for combining multiple hash
// values. The location.Location implementations build their Hash()
// out of this, the same role it plays in the donor's own
// location/lattice hashing; package context's locals key hasher uses
// its own arithmetic instead.
func HashCombine(hs ...uint32) (seed uint32) {
	for _, v := range hs {
		seed = v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}
	return
}
