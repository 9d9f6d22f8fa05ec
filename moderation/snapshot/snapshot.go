// Package snapshot serializes subject state for storage on a moderation
// record. The encoding must round-trip every schema field value, including
// file and image metadata, without loss; plain JSON over the subject struct
// satisfies that as long as subjects keep their fields JSON-encodable.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/extmarket/modgate/moderation/schema"
)

func Marshal(s schema.Subject) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("serializing %s snapshot: %w", s.SubjectType(), err)
	}
	return data, nil
}

func Unmarshal(data []byte, into schema.Subject) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("malformed snapshot for %s: %w", into.SubjectType(), err)
	}
	return nil
}

// Clone round-trips a subject through the codec, yielding an independent
// copy with no shared mutable state.
func Clone(s schema.Subject, fresh schema.Subject) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return Unmarshal(data, fresh)
}
