package chant

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Payloads are serialised as deterministic CBOR so that any JSON-like
// value round trips without a schema, and equal values produce identical
// bytes (and therefore identical signatures).
var (
	payloadEnc cbor.EncMode
	payloadDec cbor.DecMode
)

func init() {
	var err error

	payloadEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	payloadDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// MarshalPayload serialises v the way Encode does before signing.
func MarshalPayload(v any) ([]byte, error) {
	b, err := payloadEnc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unable to serialise payload: %w", err)
	}

	// Refuse values a receiver could not decode, such as maps with
	// non-string keys or unsigned integers above MaxInt64.
	var check any
	if err = payloadDec.Unmarshal(b, &check); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}

	return b, nil
}

// UnmarshalPayload deserialises a payload produced by MarshalPayload.
// Trailing data is an error.
func UnmarshalPayload(b []byte, v any) error {
	if err := payloadDec.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrStructural, err)
	}
	return nil
}
