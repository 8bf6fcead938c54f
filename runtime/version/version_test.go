package version

import (
	"strings"
	"testing"

	"github.com/forkchoice/beacon/testing/assert"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "ForkChoice/Unknown/Local build", BuildData())
	assert.Equal(t, true, strings.HasSuffix(Version(), "Built at: Moments ago"))
}
