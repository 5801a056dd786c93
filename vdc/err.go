package vdc

import (
	"errors"

	"github.com/ezrec/eira/translate"
)

var f = translate.From

var (
	ErrQueueFull = errors.New(f("vdc instruction queue full"))
)
