package blast

// Compact code lengths of the fixed tables, see construct.
var (
	// bit lengths of literal codes 0..255
	litLengths = []byte{
		11, 124, 8, 7, 28, 7, 188, 13, 76, 4, 10, 8, 12, 10, 12, 10, 8, 23, 8,
		9, 7, 6, 7, 8, 7, 6, 55, 8, 23, 24, 12, 11, 7, 9, 11, 12, 6, 7, 22, 5,
		7, 24, 6, 11, 9, 6, 7, 22, 7, 11, 38, 7, 9, 8, 25, 11, 8, 11, 9, 12,
		8, 12, 5, 38, 5, 38, 5, 11, 7, 5, 6, 21, 6, 10, 53, 8, 7, 24, 10, 27,
		44, 253, 253, 253, 252, 252, 252, 13, 12, 45, 12, 45, 12, 61, 12, 45,
		44, 173,
	}

	// bit lengths of length codes 0..15
	lenLengths = []byte{2, 35, 36, 53, 38, 23}

	// bit lengths of distance codes 0..63
	distLengths = []byte{2, 20, 53, 230, 247, 151, 248}
)

var (
	// base for length codes
	lengthBase = [16]int{3, 2, 4, 5, 6, 7, 8, 9, 10, 12, 16, 24, 40, 72, 136, 264}

	// extra bits for length codes
	lengthExtra = [16]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}
)

// Decoding tables, shared read-only by every decoder.
var (
	litCode  = mustHuffman(litLengths)
	lenCode  = mustHuffman(lenLengths)
	distCode = mustHuffman(distLengths)
)

const (
	endLength = 519 // length value of the end code

	minDict = 4
	maxDict = 6

	// MinWindowSize is the largest distance a stream can reference:
	// (63 << 6) + 63 + 1.
	MinWindowSize = 4096
	// DefaultWindowSize is the output window used by NewReader.
	DefaultWindowSize = 8192
)
