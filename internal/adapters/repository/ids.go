package repository

import (
	"fmt"

	"github.com/speps/go-hashids"
)

const (
	defaultIDSalt      = "dons-assessments"
	defaultIDMinLength = 8
)

// IDCodec maps internal row numbers to opaque public identifiers.
type IDCodec struct {
	h *hashids.HashID
}

// NewIDCodec builds a codec. Empty salt and non-positive length fall back to
// defaults.
func NewIDCodec(salt string, minLength int) (*IDCodec, error) {
	if salt == "" {
		salt = defaultIDSalt
	}
	if minLength <= 0 {
		minLength = defaultIDMinLength
	}
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = minLength
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("id codec: %w", err)
	}
	return &IDCodec{h: h}, nil
}

// Encode returns the public identifier for n.
func (c *IDCodec) Encode(n int64) (string, error) {
	id, err := c.h.EncodeInt64([]int64{n})
	if err != nil {
		return "", fmt.Errorf("encode id: %w", err)
	}
	return id, nil
}

// Decode returns the row number behind id, or ErrInvalidID.
func (c *IDCodec) Decode(id string) (int64, error) {
	if id == "" {
		return 0, ErrInvalidID
	}
	nums, err := c.h.DecodeInt64WithError(id)
	if err != nil || len(nums) != 1 || nums[0] <= 0 {
		return 0, ErrInvalidID
	}
	return nums[0], nil
}
