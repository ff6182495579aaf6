package vendor_data

import "errors"

var (
	errPayloadTooLong     = errors.New("vendor element payload exceeds maximum size")
	errElementTooShort    = errors.New("vendor element too short")
	errNotVendorElement   = errors.New("not a vendor information element")
	errLengthMismatch     = errors.New("vendor element length byte mismatch")
	errUnknownElementType = errors.New("unknown vendor element type")
)
