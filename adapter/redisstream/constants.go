package redisstream

// Field constants (avoid typos/allocs)
const (
	fieldID         = "id"
	fieldKind       = "kind"
	fieldCodec      = "codec"
	fieldPayload    = "payload"    // raw []byte to reduce allocs (no base64)
	fieldProducedAt = "producedAt" // int64 ns
	fieldDelivered  = "delivered"  // "1" or "0"
	fieldConsumed   = "consumed"   // "1" or "0"
)
