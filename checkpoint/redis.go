package checkpoint

import (
	"context"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	"github.com/dselans/undbc/checkpoint/types"
)

var msgpack = &codec.MsgpackHandle{WriteExt: true}

// RedisStore keeps the checkpoint msgpack encoded under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "unable to reach redis at '%s'", addr)
	}

	return &RedisStore{
		client: client,
		key:    key,
	}, nil
}

func (r *RedisStore) Load(ctx context.Context) (*types.Checkpoint, error) {
	data, err := r.client.WithContext(ctx).Get(r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "unable to get checkpoint key '%s'", r.key)
	}

	return decodeCheckpoint(data)
}

func (r *RedisStore) Save(ctx context.Context, cp *types.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}

	if err := r.client.WithContext(ctx).Set(r.key, data, 0).Err(); err != nil {
		return errors.Wrapf(err, "unable to set checkpoint key '%s'", r.key)
	}

	return nil
}

func (r *RedisStore) Reset(ctx context.Context) error {
	if err := r.client.WithContext(ctx).Del(r.key).Err(); err != nil {
		return errors.Wrapf(err, "unable to delete checkpoint key '%s'", r.key)
	}

	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func encodeCheckpoint(cp *types.Checkpoint) ([]byte, error) {
	var data []byte

	if err := codec.NewEncoderBytes(&data, msgpack).Encode(cp.Snapshot()); err != nil {
		return nil, errors.Wrap(err, "unable to encode checkpoint")
	}

	return data, nil
}

func decodeCheckpoint(data []byte) (*types.Checkpoint, error) {
	cp := &types.Checkpoint{}

	if err := codec.NewDecoderBytes(data, msgpack).Decode(cp); err != nil {
		return nil, errors.Wrap(err, "unable to decode checkpoint")
	}

	return cp, nil
}
