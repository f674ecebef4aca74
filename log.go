package pxgated

import (
	"github.com/moonpixels/pxgated/common"
)

var log = common.NewLog("pxgated")
