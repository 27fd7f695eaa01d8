package storage

import (
	"encoding/json"
	"fmt"

	"github.com/valter-silva-au/session-vault/internal/fsutil"
)

// EnvelopeVersion is the current on-disk envelope schema tag.
const EnvelopeVersion = "1.0"

// Envelope is the on-disk wrapper around one session payload. It is created
// on first write, replaced wholesale on every subsequent write, and deleted
// with the session. The compressed and checksum fields are interpretable
// independently, so old uncompressed or unchecksummed files decode alongside
// new ones.
type Envelope struct {
	Version    string          `json:"version"`
	Compressed bool            `json:"compressed"`
	Checksum   string          `json:"checksum,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// decodeEnvelope parses raw file bytes into an Envelope. Undecodable bytes
// are reported as corruption.
func decodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %v: %w", err, ErrCorruption)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("envelope has no payload: %w", ErrCorruption)
	}
	return &env, nil
}

// payload returns the uncompressed session JSON inside the envelope,
// verifying the embedded checksum when one is present.
func (s *Store) payload(env *Envelope) ([]byte, error) {
	data := []byte(env.Data)
	if env.Compressed {
		var blob []byte
		if err := json.Unmarshal(env.Data, &blob); err != nil {
			return nil, fmt.Errorf("decoding compressed payload: %v: %w", err, ErrCorruption)
		}
		out, err := s.comp.Decompress(blob)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrCorruption)
		}
		data = out
	}
	if env.Checksum != "" && !fsutil.VerifyChecksum(data, env.Checksum) {
		return nil, fmt.Errorf("checksum mismatch: %w", ErrCorruption)
	}
	return data, nil
}

// seal wraps serialized session JSON in an envelope, applying compression
// and checksumming per the store configuration. The checksum always covers
// the pre-compression payload.
func (s *Store) seal(payload []byte) (*Envelope, error) {
	env := &Envelope{Version: EnvelopeVersion}
	if s.cfg.Checksum {
		env.Checksum = fsutil.Checksum(payload)
	}
	if s.cfg.Compression {
		blob, err := json.Marshal(s.comp.Compress(payload))
		if err != nil {
			return nil, fmt.Errorf("encoding compressed payload: %w", err)
		}
		env.Compressed = true
		env.Data = blob
	} else {
		env.Data = json.RawMessage(payload)
	}
	return env, nil
}
