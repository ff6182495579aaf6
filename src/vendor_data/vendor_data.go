// Package vendor_data converts vendor key/value records between the
// structured representation and the over-the-air information-element hex
// representation.
package vendor_data

import (
	"encoding/hex"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Module-level logger with pre-configured module field
var logger = logrus.WithField("module", "vendor_data")

const (
	vendorElementID   = 0xdd
	vendorElementType = 0x01
	// ID + length byte leave at most 255 bytes for OUI, type and payload.
	maxElementPayload = 255 - 4
)

// Record is a structured vendor extension: a 24-bit OUI plus arbitrary
// key/value fields. A zero OUI marks the record invalid.
type Record struct {
	OUI    uint32            `json:"oui"`
	Fields map[string]string `json:"fields"`
}

// ToElements converts records to their wire representation, a hex-encoded
// vendor information element per record. Nil records and records with a
// zero OUI are dropped, not reported as errors.
func ToElements(records []*Record) []string {
	elements := make([]string, 0, len(records))
	for _, record := range records {
		if record == nil || record.OUI == 0 {
			continue
		}
		element, err := encodeElement(record)
		if err != nil {
			logger.WithError(err).WithField("oui", record.OUI).Warn("Dropping unencodable vendor record")
			continue
		}
		elements = append(elements, element)
	}
	return elements
}

// FromElements converts wire elements back to structured records.
// Malformed elements and elements with a zero OUI are dropped.
func FromElements(elements []string) []*Record {
	records := make([]*Record, 0, len(elements))
	for _, element := range elements {
		record, err := decodeElement(element)
		if err != nil {
			logger.WithError(err).Warn("Dropping malformed vendor element")
			continue
		}
		if record.OUI == 0 {
			continue
		}
		records = append(records, record)
	}
	return records
}

func encodeElement(record *Record) (string, error) {
	payload, err := json.Marshal(record.Fields)
	if err != nil {
		return "", err
	}
	if len(payload) > maxElementPayload {
		return "", errPayloadTooLong
	}

	body := make([]byte, 0, 4+len(payload))
	body = append(body,
		byte(record.OUI>>16),
		byte(record.OUI>>8),
		byte(record.OUI),
		vendorElementType)
	body = append(body, payload...)

	element := make([]byte, 0, 2+len(body))
	element = append(element, vendorElementID, byte(len(body)))
	element = append(element, body...)
	return hex.EncodeToString(element), nil
}

func decodeElement(element string) (*Record, error) {
	raw, err := hex.DecodeString(element)
	if err != nil {
		return nil, err
	}
	if len(raw) < 6 {
		return nil, errElementTooShort
	}
	if raw[0] != vendorElementID {
		return nil, errNotVendorElement
	}
	if int(raw[1]) != len(raw)-2 {
		return nil, errLengthMismatch
	}
	if raw[5] != vendorElementType {
		return nil, errUnknownElementType
	}

	record := &Record{
		OUI: uint32(raw[2])<<16 | uint32(raw[3])<<8 | uint32(raw[4]),
	}
	if err := json.Unmarshal(raw[6:], &record.Fields); err != nil {
		return nil, err
	}
	return record, nil
}
