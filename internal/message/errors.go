package message

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	ErrLoadFile   = errors.New("load_file")
	ErrSaveFile   = errors.New("save_file")
	ErrDecodeImg  = errors.New("decode_img")
	ErrConvertImg = errors.New("convert_img")
)
