package zarr

// chunkGrid maps between the flat C-order layout of a whole array and the
// fixed-shape chunks it is stored in. Edge chunks are stored full size and
// padded with the fill value.
type chunkGrid struct {
	shape  []int
	chunks []int
	// number of chunks along each dimension
	counts []int
}

func newChunkGrid(shape, chunks []int) chunkGrid {
	g := chunkGrid{shape: shape, chunks: chunks, counts: make([]int, len(shape))}
	for i := range shape {
		g.counts[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return g
}

// chunkLen is the number of items held by every chunk
func (g chunkGrid) chunkLen() int {
	n := 1
	for _, c := range g.chunks {
		n *= c
	}
	return n
}

// coords lists the indices of every chunk in C order. An array with a zero
// length dimension has no chunks.
func (g chunkGrid) coords() [][]int {
	total := 1
	for _, c := range g.counts {
		total *= c
	}
	out := make([][]int, 0, total)
	for flat := 0; flat < total; flat++ {
		out = append(out, unravel(flat, g.counts))
	}
	return out
}

// A mapping of items from chunk to output array. Can be used to extract items
// from the chunk array for loading into an output array. Can also be used to
// extract items from a value array for setting/updating in a chunk array.
type chunkProjection struct {
	// Indices of chunk
	ChunkCoords []int
	// Selection of items from chunk array.
	ChunkSelection []int
	// Selection of items in target (output) array.
	OutSelection []int
}

// project pairs each in-bounds item of the chunk at cc with its position in
// the whole array
func (g chunkGrid) project(cc []int) chunkProjection {
	p := chunkProjection{ChunkCoords: cc}
	n := g.chunkLen()
	idx := make([]int, len(g.shape))
items:
	for local := 0; local < n; local++ {
		rem := local
		for d := len(g.chunks) - 1; d >= 0; d-- {
			idx[d] = cc[d]*g.chunks[d] + rem%g.chunks[d]
			rem /= g.chunks[d]
			if idx[d] >= g.shape[d] {
				continue items
			}
		}
		p.ChunkSelection = append(p.ChunkSelection, local)
		p.OutSelection = append(p.OutSelection, ravel(idx, g.shape))
	}
	return p
}

func unravel(flat int, dims []int) []int {
	idx := make([]int, len(dims))
	for d := len(dims) - 1; d >= 0; d-- {
		idx[d] = flat % dims[d]
		flat /= dims[d]
	}
	return idx
}

func ravel(idx, dims []int) int {
	flat := 0
	for d, n := range dims {
		flat = flat*n + idx[d]
	}
	return flat
}
