package logsys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

func TestRingBuffer_CopyInWithinOneBlock(t *testing.T) {
	r := NewRingBuffer(4096)
	start := common.LSNT(common.LOG_BLOCK_HDR_SIZE)

	end := r.CopyIn(start, []byte("AB"))
	assert.Equal(t, start+2, end)

	got := r.ReadRange(start, end)
	assert.Equal(t, []byte("AB"), got)
}

// Block-boundary crossing: B=512, H=12, T=4. An mtr starting at lsn 500
// with 30 bytes spans the block trailer: 8 bytes land in block 0's tail,
// then the copy skips the trailer/header, and the remaining 22 land at
// the start of block 1 — whose first_rec_group must read 12 (H).
func TestRingBuffer_CopyInBlockBoundaryCrossing(t *testing.T) {
	r := NewRingBuffer(4096)

	payload := make([]byte, 30)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	start := common.LSNT(500)
	require.Equal(t, common.LSNT(508), common.LSNT(common.OS_FILE_LOG_BLOCK_SIZE-common.LOG_BLOCK_TRL_SIZE))

	end := r.CopyIn(start, payload)

	// 8 bytes fit in block 0 (500..508), then skip 4 trailer + 12 header
	// bytes, leaving 22 bytes starting at block 1's payload (512+12=524).
	assert.Equal(t, common.LSNT(524+22), end)

	h := r.blockHeaderAt(512)
	// The copy cleared first_rec_group on entering block 1's payload, so a
	// later commit can claim it.
	assert.Equal(t, uint16(0), h.firstRecGroup())

	r.SetFirstRecGroup(524)
	assert.Equal(t, uint16(common.LOG_BLOCK_HDR_SIZE), h.firstRecGroup())

	tail := r.ReadRange(524, end)
	assert.Equal(t, payload[8:], tail)

	head := r.ReadRange(start, 508)
	assert.Equal(t, payload[:8], head)
}

// Ring wrap: the ring's physical size always coincides with a block
// boundary (size is a multiple of B), so a byte range whose lsn addresses
// pass r.size wrap back to physical offset 0. writeAt/ReadRange are the
// primitives responsible for that wrap, independent of CopyIn's block
// framing (already exercised by TestRingBuffer_CopyInBlockBoundaryCrossing).
func TestRingBuffer_WriteAtWraps(t *testing.T) {
	r := NewRingBuffer(1024)

	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	// lsn 1020..1039 (mod 1024): first 4 bytes at physical 1020..1023, the
	// remaining 16 wrap to physical 0..15.
	r.writeAt(1020, payload)

	got := r.ReadRange(1020, 1040)
	assert.Equal(t, payload, got)

	assert.Equal(t, payload[:4], r.buf[1020:1024])
	assert.Equal(t, payload[4:], r.buf[0:16])
}

// CopyIn's own wrap: a reservation landing exactly on a block's trailer
// boundary crosses straight into the next block, which due to the ring's
// size-is-a-block-multiple invariant physically wraps back to offset 0.
func TestRingBuffer_CopyInWrapsAcrossRingEnd(t *testing.T) {
	r := NewRingBuffer(1024) // exactly 2 blocks

	end := r.CopyIn(1020, []byte{0xAA, 0xBB})

	// 1020 is block 1's dataEnd (512+12+496); the copy crosses straight
	// into block 2's payload, whose header physically wraps to offset 0
	// (block 2 starts at lsn 1024, 1024 mod 1024 == 0).
	assert.Equal(t, common.LSNT(1024+common.LOG_BLOCK_HDR_SIZE+2), end)

	got := r.ReadRange(1024+common.LOG_BLOCK_HDR_SIZE, end)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestRingBuffer_SetFirstRecGroupOnlyOnce(t *testing.T) {
	r := NewRingBuffer(4096)
	r.blockHeaderAt(0).setFirstRecGroup(0)

	r.SetFirstRecGroup(common.LOG_BLOCK_HDR_SIZE + 5)
	h := r.blockHeaderAt(0)
	assert.Equal(t, uint16(common.LOG_BLOCK_HDR_SIZE+5), h.firstRecGroup())

	// A second claim on an already-claimed block must not overwrite it.
	r.SetFirstRecGroup(common.LOG_BLOCK_HDR_SIZE + 50)
	assert.Equal(t, uint16(common.LOG_BLOCK_HDR_SIZE+5), h.firstRecGroup())
}

func TestRingBuffer_Resize(t *testing.T) {
	r := NewRingBuffer(1024)
	newSize := r.Resize(1500)
	assert.Equal(t, uint64(1536), newSize) // rounded up to a 512 multiple
	assert.Equal(t, uint64(1536), r.Size())
}
