package base

// PayloadEncoder serializes message values into transport-safe payloads
type PayloadEncoder interface {
	// EncodePayload serializes the given value. It must be total: any value yields some valid
	// payload and self-referential structures must not cause errors or infinite recursion.
	EncodePayload(value interface{}) []byte
}
