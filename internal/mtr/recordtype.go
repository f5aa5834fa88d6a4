package mtr

// RecordType names the redo record-type byte catalogue, carried verbatim
// from mtr0types.h so callers can self-document the records they push
// without this subsystem ever interpreting their payload. Values are
// bit-exact with the original wire format.
type RecordType byte

const (
	// SingleRecFlag is OR'd into the type byte of a single-record mtr's
	// only record; not a record type on its own.
	SingleRecFlag RecordType = 0x80

	MLOG1Byte RecordType = 1
	MLOG2Bytes RecordType = 2
	MLOG4Bytes RecordType = 4
	MLOG8Bytes RecordType = 8

	MLOGRecInsert            RecordType = 9
	MLOGRecClustDeleteMark   RecordType = 10
	MLOGRecSecDeleteMark     RecordType = 11
	MLOGRecUpdateInPlace     RecordType = 13
	MLOGRecDelete            RecordType = 14
	MLOGListEndDelete        RecordType = 15
	MLOGListStartDelete      RecordType = 16
	MLOGListEndCopyCreated   RecordType = 17
	MLOGPageReorganize       RecordType = 18
	MLOGPageCreate           RecordType = 19
	MLOGUndoInsert           RecordType = 20
	MLOGUndoEraseEnd         RecordType = 21
	MLOGUndoInit             RecordType = 22
	MLOGUndoHdrReuse         RecordType = 24
	MLOGUndoHdrCreate        RecordType = 25
	MLOGRecMinMark           RecordType = 26
	MLOGIbufBitmapInit       RecordType = 27
	MLOGLSN                  RecordType = 28
	MLOGInitFilePage         RecordType = 29
	MLOGWriteString          RecordType = 30
	MLOGMultiRecEnd          RecordType = 31
	MLOGDummyRecord          RecordType = 32
	MLOGFileCreate           RecordType = 33
	MLOGFileRename           RecordType = 34
	MLOGFileDelete           RecordType = 35
	MLOGCompRecMinMark       RecordType = 36
	MLOGCompPageCreate       RecordType = 37
	MLOGCompRecInsert        RecordType = 38
	MLOGCompRecClustDeleteMark RecordType = 39
	MLOGCompRecSecDeleteMark RecordType = 40
	MLOGCompRecUpdateInPlace RecordType = 41
	MLOGCompRecDelete        RecordType = 42
	MLOGCompListEndDelete    RecordType = 43
	MLOGCompListStartDelete  RecordType = 44
	MLOGCompListEndCopyCreated RecordType = 45
	MLOGCompPageReorganize   RecordType = 46
	MLOGZipWriteNodePtr      RecordType = 48
	MLOGZipWriteBlobPtr      RecordType = 49
	MLOGZipWriteHeader       RecordType = 50
	MLOGZipPageCompress      RecordType = 51
	MLOGZipPageCompressNoData RecordType = 52
	MLOGZipPageReorganize    RecordType = 53
	MLOGPageCreateRTree      RecordType = 57
	MLOGCompPageCreateRTree  RecordType = 58
	MLOGInitFilePage2        RecordType = 59
	MLOGIndexLoad            RecordType = 61
	MLOGTableDynamicMeta     RecordType = 62
	MLOGPageCreateSDI        RecordType = 63
	MLOGCompPageCreateSDI    RecordType = 64
	MLOGFileExtend           RecordType = 65
	MLOGTest                 RecordType = 66

	// MLOGBiggestType is the highest assigned record type id.
	MLOGBiggestType = MLOGTest
)
