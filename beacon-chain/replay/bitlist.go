package replay

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
)

// decodeBitlist decodes a hex encoded SSZ bitlist. The last byte must carry
// the length bit.
func decodeBitlist(s string) (bitfield.Bitlist, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode aggregation bits %q", s)
	}
	if len(b) == 0 || b[len(b)-1] == 0 {
		return nil, errors.Errorf("aggregation bits %q have no length bit", s)
	}
	return bitfield.Bitlist(b), nil
}
