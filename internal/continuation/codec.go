package continuation

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// ErrDigestMismatch means a stored checkpoint does not match its digest.
var ErrDigestMismatch = errors.New("checkpoint digest mismatch")

// Codec turns continuation states into compact blobs: zstd-compressed
// deterministic CBOR, identified by the BLAKE3 digest of the CBOR bytes.
type Codec struct {
	enc  cbor.EncMode
	dec  cbor.DecMode
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

// NewCodec builds a codec. It is safe for concurrent use.
func NewCodec() (*Codec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to build cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		MaxArrayElements: 1 << 22,
		MaxMapPairs:      1 << 22,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to build cbor decoder: %w", err)
	}
	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to build zstd encoder: %w", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec, zenc: zenc, zdec: zdec}, nil
}

// Encode returns the compressed blob and its hex digest.
func (c *Codec) Encode(state domain.ContinuationState) ([]byte, string, error) {
	raw, err := c.enc.Marshal(state)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal continuation state: %w", err)
	}
	return c.zenc.EncodeAll(raw, nil), digest(raw), nil
}

// Decode reverses Encode. An empty want skips digest verification.
func (c *Codec) Decode(blob []byte, want string) (domain.ContinuationState, error) {
	var state domain.ContinuationState
	raw, err := c.zdec.DecodeAll(blob, nil)
	if err != nil {
		return state, fmt.Errorf("failed to decompress checkpoint: %w", err)
	}
	if want != "" && digest(raw) != want {
		return state, ErrDigestMismatch
	}
	if err := c.dec.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal continuation state: %w", err)
	}
	return state, nil
}

func digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
