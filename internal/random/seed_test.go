package random_test

import (
	"testing"

	"github.com/m-mizutani/gonogo/internal/random"
	"github.com/m-mizutani/gt"
)

func TestNewSeed(t *testing.T) {
	a, err := random.NewSeed()
	gt.NoError(t, err)
	b, err := random.NewSeed()
	gt.NoError(t, err)
	gt.True(t, a != b)
}
