// Package manifest persists collection manifests.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hyperjump/kirinuki/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidName is returned for collection names that are not safe as storage keys.
var ErrInvalidName = errors.New("invalid collection name")

var validName = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// Store reads and writes manifests. Saving a manifest replaces the previous
// one for the same name atomically.
type Store interface {
	Load(ctx context.Context) ([]models.Manifest, error)
	Save(ctx context.Context, m models.Manifest) error
	Delete(ctx context.Context, name string) error
}

// ValidateName checks that name is non-empty, made of letters, digits,
// '.', '_' and '-', and does not start with a dot.
func ValidateName(name string) error {
	if len(name) > 200 || !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DefaultRedisKey is the hash holding all manifests in a RedisStore.
const DefaultRedisKey = "kirinuki:manifests"

// Option configures a store.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	redisKey string
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRedisKey sets the hash a RedisStore keeps its manifests in.
func WithRedisKey(key string) Option {
	return func(o *options) { o.redisKey = key }
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), redisKey: DefaultRedisKey}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
