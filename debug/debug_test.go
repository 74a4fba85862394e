package debug

import (
	"errors"
	"testing"
)

func TestDropErrorNoPanic(t *testing.T) {
	DropError("test", errors.New("boom"))
	DropError("test", nil)
}

func TestDropMessageNoPanic(t *testing.T) {
	DropMessage("INIT", "starting up")
}
