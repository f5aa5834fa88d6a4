package logsys

import (
	"encoding/binary"

	"github.com/zhukovaskychina/xmysql-redo/internal/common"
)

// blockHeader reads/writes the fixed fields of a log block header in place,
// given the block's starting offset within a byte slice.
type blockHeader struct {
	buf []byte // the full OS_FILE_LOG_BLOCK_SIZE block, header at buf[0:]
}

func (h blockHeader) setHdrNo(no uint32) {
	binary.LittleEndian.PutUint32(h.buf[common.LOG_BLOCK_HDR_NO_OFFSET:], no)
}

func (h blockHeader) hdrNo() uint32 {
	return binary.LittleEndian.Uint32(h.buf[common.LOG_BLOCK_HDR_NO_OFFSET:])
}

func (h blockHeader) setDataLen(n uint16) {
	binary.LittleEndian.PutUint16(h.buf[common.LOG_BLOCK_HDR_DATA_LEN_OFFSET:], n)
}

func (h blockHeader) dataLen() uint16 {
	return binary.LittleEndian.Uint16(h.buf[common.LOG_BLOCK_HDR_DATA_LEN_OFFSET:])
}

func (h blockHeader) setFirstRecGroup(offset uint16) {
	binary.LittleEndian.PutUint16(h.buf[common.LOG_BLOCK_FIRST_REC_GROUP_OFFSET:], offset)
}

func (h blockHeader) firstRecGroup() uint16 {
	return binary.LittleEndian.Uint16(h.buf[common.LOG_BLOCK_FIRST_REC_GROUP_OFFSET:])
}

func (h blockHeader) setCheckpointNo(no uint32) {
	binary.LittleEndian.PutUint32(h.buf[common.LOG_BLOCK_CHECKPOINT_NO_OFFSET:], no)
}

func (h blockHeader) checkpointNo() uint32 {
	return binary.LittleEndian.Uint32(h.buf[common.LOG_BLOCK_CHECKPOINT_NO_OFFSET:])
}

// trailerOffset is where the 4-byte checksum lives, relative to block start.
const trailerOffset = common.OS_FILE_LOG_BLOCK_SIZE - common.LOG_BLOCK_TRL_SIZE

func setChecksum(block []byte, sum uint32) {
	binary.LittleEndian.PutUint32(block[trailerOffset+common.LOG_BLOCK_CHECKSUM_OFFSET:], sum)
}

func checksumOf(block []byte) uint32 {
	// A simple polynomial hash (sum*31 + byte) over header+payload is sufficient for this
	// subsystem's contract (detect torn/short writes); the on-disk format's
	// exact algorithm is owned by the file layer.
	var sum uint32
	for _, b := range block[:trailerOffset] {
		sum = sum*31 + uint32(b)
	}
	return sum
}
