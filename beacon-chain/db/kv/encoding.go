package kv

import (
	"context"
	"reflect"

	fastssz "github.com/ferranbt/fastssz"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

func decode(ctx context.Context, data []byte, dst fastssz.Unmarshaler) error {
	_, span := trace.StartSpan(ctx, "BeaconDB.decode")
	defer span.End()

	data, err := snappy.Decode(nil, data)
	if err != nil {
		return err
	}
	return dst.UnmarshalSSZ(data)
}

func encode(ctx context.Context, msg fastssz.Marshaler) ([]byte, error) {
	_, span := trace.StartSpan(ctx, "BeaconDB.encode")
	defer span.End()

	if msg == nil || reflect.ValueOf(msg).IsNil() {
		return nil, errors.New("cannot encode nil message")
	}
	enc, err := msg.MarshalSSZ()
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, enc), nil
}
