package pxgated

import (
	"errors"
)

var (
	ErrNotExist = errors.New("not_exist_record")
	ErrNotFound = errors.New("not_found")

	ErrInvalidCoordinate = errors.New("invalid_coordinate")
	ErrOutOfRange        = errors.New("range_out_of_canvas")
	ErrInvalidColor      = errors.New("invalid_color")
	ErrInvalidAddress    = errors.New("invalid_address")
	ErrEmptySelection    = errors.New("empty_selection")

	ErrNotMinted     = errors.New("pixel_not_minted")
	ErrAlreadyMinted = errors.New("pixel_already_minted")
	ErrCellPending   = errors.New("pixel_tx_pending")
	ErrNotOwner      = errors.New("not_pixel_owner")

	ErrOpExist       = errors.New("op_exist")
	ErrNoSigner      = errors.New("signer_not_configured")
	ErrNotComposable = errors.New("not_enough_owned_pixels")
)
