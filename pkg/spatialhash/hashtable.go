package spatialhash

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/kartaroute/querygraph/pkg/util"
)

// HashTable is a fixed-capacity spatial hashtable keyed by a
// SpatialKeyAlgo key, ported bucket-for-bucket from the jetsli
// SpatialHashtable this package is based on. Each bucket is a fixed
// byte region: a single header byte (`n<<1|full_bit`) followed by n
// forward entries growing from the front, with any overflow spilling
// backward from the bucket's own tail. A bucket that runs out of room
// marks itself full and threads its next overflow entry into whichever
// subsequent bucket (ring-wrapped) has a free tail slot; each overflow
// entry carries one extra byte recording its hop distance back to the
// owning bucket plus a stopbit marking the end of that owner's chain.
type HashTable struct {
	key *SpatialKeyAlgo

	skipKeyBeginningBits int
	bucketIndexBits      int
	skipKeyEndBits       int
	bucketIndexMask      uint64
	tailMask             uint64

	maxEntriesPerBucket   int // already headroom-adjusted
	bytesPerValue         int
	storedKeyBytesN       int
	bytesPerEntry         int
	bytesPerOverflowEntry int
	bytesPerBucket        int

	buckets []byte
	size    int
}

// Config controls the layout of a new HashTable, mirroring the
// parameters of the table this package is ported from.
type Config struct {
	// KeyBits is the bit width of SpatialKeyAlgo keys fed to this table.
	KeyBits int
	// SkipKeyBeginningBits is how many high bits of the 64-bit key are
	// skipped when forming the bucket index; the usual choice is
	// 64-KeyBits, i.e. exactly the padding above the significant key.
	SkipKeyBeginningBits int
	// MaxEntries is the total number of entries the table is sized for.
	MaxEntries int
	// MaxEntriesPerBucket is the initial per-bucket target; New adjusts
	// it upward to reserve overflow headroom before deriving the bucket
	// count and byte layout from it.
	MaxEntriesPerBucket int
	// BytesPerValue is the width of the stored value, in bytes (1..8).
	BytesPerValue int
}

// maxOverflowSteps is the literal 200-step ceiling of the overflow chain
// walk, kept from the table this is ported from. overflowStepBound
// lowers it to the bucket count for tables with fewer buckets.
const maxOverflowSteps = 200

// New allocates a HashTable per cfg, deriving the bucket count and byte
// layout the way the ported table does: adjust MaxEntriesPerBucket
// upward for overflow headroom, size maxBuckets off that adjusted
// value, then derive the key-compression split (X/Y/tail) from
// SkipKeyBeginningBits and the resulting bucketIndexBits.
func New(cfg Config) (*HashTable, error) {
	if cfg.KeyBits <= 0 || cfg.KeyBits > 64 {
		return nil, ErrConfigError
	}
	if cfg.MaxEntries <= 0 || cfg.MaxEntriesPerBucket <= 0 {
		return nil, ErrConfigError
	}
	if cfg.BytesPerValue < 1 || cfg.BytesPerValue > 8 {
		return nil, ErrConfigError
	}
	if cfg.SkipKeyBeginningBits < 0 {
		return nil, ErrConfigError
	}

	adjusted := adjustEntriesPerBucket(cfg.MaxEntriesPerBucket)
	if adjusted > 127 {
		// the header byte's count field is 7 bits wide.
		return nil, ErrConfigError
	}

	maxBuckets := nextPowerOfTwo(ceilDiv(cfg.MaxEntries, adjusted))
	bucketIndexBits := bits.Len(uint(maxBuckets)) - 1

	skipKeyEndBits := 64 - cfg.SkipKeyBeginningBits - 2*bucketIndexBits
	if skipKeyEndBits < 0 {
		return nil, ErrConfigError
	}

	storedKeyBits := bucketIndexBits + skipKeyEndBits
	bytesPerKeyRest := bytesForBits(cfg.KeyBits - bucketIndexBits)
	if bytesPerKeyRest*8 < storedKeyBits {
		// the literal spec formula undershoots for this combination of
		// KeyBits/SkipKeyBeginningBits; refuse rather than truncate keys.
		return nil, ErrConfigError
	}

	ht := &HashTable{
		key:                   NewSpatialKeyAlgo(cfg.KeyBits),
		skipKeyBeginningBits:  cfg.SkipKeyBeginningBits,
		bucketIndexBits:       bucketIndexBits,
		skipKeyEndBits:        skipKeyEndBits,
		bucketIndexMask:       uint64(maxBuckets - 1),
		tailMask:              maskBits(skipKeyEndBits),
		maxEntriesPerBucket:   adjusted,
		bytesPerValue:         cfg.BytesPerValue,
		storedKeyBytesN:       bytesPerKeyRest,
	}
	ht.bytesPerEntry = ht.storedKeyBytesN + ht.bytesPerValue
	ht.bytesPerOverflowEntry = ht.bytesPerEntry + 1
	ht.bytesPerBucket = 1 + ht.maxEntriesPerBucket*ht.bytesPerEntry
	ht.buckets = make([]byte, ht.bytesPerBucket*maxBuckets)
	return ht, nil
}

// adjustEntriesPerBucket reserves overflow headroom above the caller's
// requested target the same way the ported table does.
func adjustEntriesPerBucket(m int) int {
	switch {
	case m < 5:
		return m + 1
	case m < 8:
		return m + 2
	default:
		return int(math.Ceil(float64(m) * 1.25))
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func bytesForBits(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + 7) / 8
}

func maskBits(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

func (h *HashTable) numBuckets() int { return len(h.buckets) / h.bytesPerBucket }

// Size returns the number of entries stored.
func (h *HashTable) Size() int { return h.size }

// MemoryUsageBytes returns the size of the underlying buffer.
func (h *HashTable) MemoryUsageBytes() int { return len(h.buckets) }

func (h *HashTable) overflowStepBound() int {
	return util.MinInt(h.numBuckets(), maxOverflowSteps)
}

// bucketIndex splits key as [skipKeyBeginningBits | X:bucketIndexBits |
// Y:bucketIndexBits | skipKeyEndBits] and returns X XOR Y, coupling two
// spatially-adjacent sub-quadrants into the same bucket.
func (h *HashTable) bucketIndex(key uint64) int {
	x := (key >> uint(h.skipKeyEndBits+h.bucketIndexBits)) & h.bucketIndexMask
	y := (key >> uint(h.skipKeyEndBits)) & h.bucketIndexMask
	return int(x ^ y)
}

// storedKey drops Y (recoverable as bucketIndex XOR X) and keeps X plus
// the unskipped tail bits, the portion not implied by the bucket index.
func (h *HashTable) storedKey(key uint64) uint64 {
	x := (key >> uint(h.skipKeyEndBits+h.bucketIndexBits)) & h.bucketIndexMask
	tail := key & h.tailMask
	return (x << uint(h.skipKeyEndBits)) | tail
}

func (h *HashTable) toUncompressedKey(bi int, stored uint64) uint64 {
	x := stored >> uint(h.skipKeyEndBits)
	tail := stored & h.tailMask
	y := uint64(bi) ^ x
	return (x << uint(h.skipKeyEndBits+h.bucketIndexBits)) | (y << uint(h.skipKeyEndBits)) | tail
}

// AddKey inserts value under the spatial key. Duplicate keys are
// allowed and simply accumulate as distinct entries, matching the data
// model this table implements; callers that want update semantics must
// de-duplicate themselves.
func (h *HashTable) AddKey(key uint64, value uint32) error {
	bi := h.bucketIndex(key)
	stored := h.storedKey(key)

	if !h.isFull(bi) {
		n := h.forwardCount(bi)
		o := h.overflowCount(bi)
		if (n+1)*h.bytesPerEntry+o*h.bytesPerOverflowEntry+1 <= h.bytesPerBucket {
			off := h.forwardOffset(bi, n)
			h.writeKey(off, stored)
			h.writeValue(off, value)
			h.setHeader(bi, n+1, false)
			h.size++
			return nil
		}
		h.setHeader(bi, n, true)
	}

	if err := h.appendOverflow(bi, stored, value); err != nil {
		return err
	}
	h.size++
	return nil
}

// appendOverflow walks forward from bi (ring-wrapped, at most
// overflowStepBound buckets) looking for the first bucket with a free
// overflow slot, clearing whatever previous entry was bi's chain tail
// before writing the new one as the chain's new tail.
func (h *HashTable) appendOverflow(bi int, stored uint64, value uint32) error {
	numBuckets := h.numBuckets()
	bound := h.overflowStepBound()

	tailCur, tailSlot := -1, -1
	cur := bi
	for d := 1; d <= bound; d++ {
		cur = (cur + 1) % numBuckets

		for s := 0; ; s++ {
			off := h.overflowSlotOffset(cur, s)
			if off <= h.bucketStart(cur) {
				break
			}
			b := h.buckets[off]
			if b == 0 {
				break
			}
			if int(b>>1) == d && b&1 == 1 {
				tailCur, tailSlot = cur, s
			}
		}

		n := h.forwardCount(cur)
		o := h.overflowCount(cur)
		if n*h.bytesPerEntry+(o+1)*h.bytesPerOverflowEntry+1 <= h.bytesPerBucket {
			off := h.overflowSlotOffset(cur, o)
			if tailCur >= 0 {
				h.clearStopBit(tailCur, tailSlot)
			}
			h.buckets[off] = byte(d<<1) | 1
			h.writeKey(off+1, stored)
			h.writeValue(off+1, value)
			return nil
		}
	}
	return ErrTableFull
}

// GetKey looks up the value stored under key, returning ok=false if
// absent. It checks the home bucket's forward entries first, then, if
// the bucket is full, walks the overflow chain of subsequent buckets
// whose offset byte identifies them as belonging to bi.
func (h *HashTable) GetKey(key uint64) (value uint32, ok bool) {
	bi := h.bucketIndex(key)
	stored := h.storedKey(key)

	n := h.forwardCount(bi)
	for i := 0; i < n; i++ {
		off := h.forwardOffset(bi, i)
		if h.readKey(off) == stored {
			return h.readValue(off), true
		}
	}
	if !h.isFull(bi) {
		return 0, false
	}
	return h.findOverflowValue(bi, stored)
}

func (h *HashTable) findOverflowValue(bi int, stored uint64) (uint32, bool) {
	numBuckets := h.numBuckets()
	bound := h.overflowStepBound()
	cur := bi
	for d := 1; d <= bound; d++ {
		cur = (cur + 1) % numBuckets
		for s := 0; ; s++ {
			off := h.overflowSlotOffset(cur, s)
			if off <= h.bucketStart(cur) {
				break
			}
			b := h.buckets[off]
			if b == 0 {
				break
			}
			if int(b>>1) != d {
				continue
			}
			if h.readKey(off+1) == stored {
				return h.readValue(off + 1), true
			}
			if b&1 == 1 {
				return 0, false
			}
		}
	}
	return 0, false
}

// overflowEntriesOwnedBy returns every (storedKey, value) pair chained
// into subsequent buckets under owner bi, in chain order, stopping at
// the entry whose offset byte carries the stopbit.
func (h *HashTable) overflowEntriesOwnedBy(bi int) []overflowEntry {
	var out []overflowEntry
	numBuckets := h.numBuckets()
	bound := h.overflowStepBound()
	cur := bi
	for d := 1; d <= bound; d++ {
		cur = (cur + 1) % numBuckets
		for s := 0; ; s++ {
			off := h.overflowSlotOffset(cur, s)
			if off <= h.bucketStart(cur) {
				break
			}
			b := h.buckets[off]
			if b == 0 {
				break
			}
			if int(b>>1) != d {
				continue
			}
			out = append(out, overflowEntry{storedKey: h.readKey(off + 1), value: h.readValue(off + 1)})
			if b&1 == 1 {
				return out
			}
		}
	}
	return out
}

type overflowEntry struct {
	storedKey uint64
	value     uint32
}

// --- bucket layout ---

func (h *HashTable) bucketStart(bi int) int { return bi * h.bytesPerBucket }

func (h *HashTable) forwardCount(bi int) int { return int(h.buckets[h.bucketStart(bi)] >> 1) }

func (h *HashTable) isFull(bi int) bool { return h.buckets[h.bucketStart(bi)]&1 == 1 }

func (h *HashTable) setHeader(bi, n int, full bool) {
	var f byte
	if full {
		f = 1
	}
	h.buckets[h.bucketStart(bi)] = byte(n<<1) | f
}

func (h *HashTable) forwardOffset(bi, slot int) int {
	return h.bucketStart(bi) + 1 + slot*h.bytesPerEntry
}

// overflowSlotOffset returns the position of overflow slot `slot`'s
// offset/stopbit byte, counting from the bucket's tail inward: slot 0
// is nearest the tail and fills first. A slot whose offset byte would
// fall inside the bucket's forward entries does not exist; for it the
// bucket's start is returned, which every caller treats as the end of
// the overflow area.
func (h *HashTable) overflowSlotOffset(bi, slot int) int {
	end := h.bucketStart(bi) + h.bytesPerBucket
	off := end - (slot+1)*h.bytesPerOverflowEntry
	if off < h.forwardOffset(bi, h.forwardCount(bi)) {
		return h.bucketStart(bi)
	}
	return off
}

// overflowCount scans a bucket's own tail region from slot 0 inward,
// stopping at the first never-written (zero) offset byte. Slots always
// fill contiguously from the tail, so this is exact.
func (h *HashTable) overflowCount(bi int) int {
	o := 0
	for {
		off := h.overflowSlotOffset(bi, o)
		if off <= h.bucketStart(bi) || h.buckets[off] == 0 {
			break
		}
		o++
	}
	return o
}

func (h *HashTable) clearStopBit(bi, slot int) {
	off := h.overflowSlotOffset(bi, slot)
	h.buckets[off] = (h.buckets[off] >> 1) << 1
}

func (h *HashTable) writeKey(off int, key uint64) {
	n := h.storedKeyBytesN
	for i := 0; i < n; i++ {
		shift := uint((n - 1 - i) * 8)
		h.buckets[off+i] = byte(key >> shift)
	}
}

func (h *HashTable) readKey(off int) uint64 {
	n := h.storedKeyBytesN
	var key uint64
	for i := 0; i < n; i++ {
		key = key<<8 | uint64(h.buckets[off+i])
	}
	return key
}

func (h *HashTable) writeValue(off int, value uint32) {
	valOff := off + h.storedKeyBytesN
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(value))
	copy(h.buckets[valOff:valOff+h.bytesPerValue], buf[8-h.bytesPerValue:])
}

func (h *HashTable) readValue(off int) uint32 {
	valOff := off + h.storedKeyBytesN
	var buf [8]byte
	copy(buf[8-h.bytesPerValue:], h.buckets[valOff:valOff+h.bytesPerValue])
	return uint32(binary.BigEndian.Uint64(buf[:]))
}

// Clear resets the table to empty without reallocating the buffer.
func (h *HashTable) Clear() {
	for i := range h.buckets {
		h.buckets[i] = 0
	}
	h.size = 0
}
