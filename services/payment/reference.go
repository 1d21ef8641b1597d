package payment

import (
	"encoding/json"

	"agendazap/models"
)

// EncodeReference serializes the charge reference for the provider's
// external_reference field.
func EncodeReference(ref models.ChargeReference) (string, error) {
	b, err := json.Marshal(ref)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeReference parses an external_reference payload echoed back by a
// payment webhook. An empty payload decodes to the zero reference.
func DecodeReference(raw string) (models.ChargeReference, error) {
	var ref models.ChargeReference
	if raw == "" {
		return ref, nil
	}
	err := json.Unmarshal([]byte(raw), &ref)
	return ref, err
}
