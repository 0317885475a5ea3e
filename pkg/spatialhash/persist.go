package spatialhash

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
)

// Save writes the table to filename, bzip2-compressed, the way the
// graph storage in this package's teacher persists its own flat
// buffers. The layout is a small fixed header of the derived layout
// constants New computed, followed by the raw bucket buffer, so Load
// can reconstruct a HashTable without re-deriving them from MaxEntries
// (which is lossy once MaxEntriesPerBucket has been headroom-adjusted).
func (h *HashTable) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)
	header := []int64{
		int64(h.key.Bits()),
		int64(h.skipKeyBeginningBits),
		int64(h.bucketIndexBits),
		int64(h.skipKeyEndBits),
		int64(h.maxEntriesPerBucket),
		int64(h.bytesPerValue),
		int64(h.storedKeyBytesN),
		int64(h.numBuckets()),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(h.buckets); err != nil {
		return err
	}
	return w.Flush()
}

// Load reads a table previously written by Save.
func Load(filename string) (*HashTable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(bz)
	var keyBits, skipKeyBeginningBits, bucketIndexBits, skipKeyEndBits int64
	var maxEntriesPerBucket, bytesPerValue, storedKeyBytesN, numBuckets int64
	fields := []*int64{
		&keyBits, &skipKeyBeginningBits, &bucketIndexBits, &skipKeyEndBits,
		&maxEntriesPerBucket, &bytesPerValue, &storedKeyBytesN, &numBuckets,
	}
	for _, v := range fields {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("spatialhash: reading header: %w", err)
		}
	}

	ht := &HashTable{
		key:                   NewSpatialKeyAlgo(int(keyBits)),
		skipKeyBeginningBits:  int(skipKeyBeginningBits),
		bucketIndexBits:       int(bucketIndexBits),
		skipKeyEndBits:        int(skipKeyEndBits),
		bucketIndexMask:       uint64(1<<uint(bucketIndexBits)) - 1,
		tailMask:              maskBits(int(skipKeyEndBits)),
		maxEntriesPerBucket:   int(maxEntriesPerBucket),
		bytesPerValue:         int(bytesPerValue),
		storedKeyBytesN:       int(storedKeyBytesN),
	}
	ht.bytesPerEntry = ht.storedKeyBytesN + ht.bytesPerValue
	ht.bytesPerOverflowEntry = ht.bytesPerEntry + 1
	ht.bytesPerBucket = 1 + ht.maxEntriesPerBucket*ht.bytesPerEntry
	ht.buckets = make([]byte, ht.bytesPerBucket*int(numBuckets))

	if _, err := io.ReadFull(r, ht.buckets); err != nil {
		return nil, fmt.Errorf("spatialhash: reading buckets: %w", err)
	}

	for bi := 0; bi < ht.numBuckets(); bi++ {
		ht.size += ht.forwardCount(bi) + ht.overflowCount(bi)
	}
	return ht, nil
}
