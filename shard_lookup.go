package pagepool

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// shardIndex menentukan shard untuk key: xxhash64 dari 8 byte little-endian
// key, modulo jumlah shard. Hasilnya stabil selama pool hidup (dan antar
// proses), jadi satu key selalu dilayani shard yang sama.
func shardIndex(key uint64, n int) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], key)
	return int(xxhash.Sum64(b[:]) % uint64(n))
}

// findShard mengembalikan shard yang memiliki key.
func (p *BufferPool) findShard(key uint64) *shard {
	return p.shards[shardIndex(key, len(p.shards))]
}
