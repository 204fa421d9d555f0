package domain

import "errors"

var ErrInvalidAssetID = errors.New("invalid asset id")
