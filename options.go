package dvuploader

import (
	"github.com/gdcc/dvuploader-go/internal/config"
)

// UploadOptions configures one call to Upload.
type UploadOptions struct {
	// ReplaceExisting opts into replacing dataset files whose path
	// matches an existing inventory entry. If false, matching
	// descriptors are dropped from the run.
	ReplaceExisting bool

	// ForceNative skips the direct-upload capability probe and always
	// uses the native driver.
	ForceNative bool

	// Config overrides the default tunables. Without WithConfig it holds
	// config.New()'s environment-derived defaults; a Config passed to
	// WithConfig is used as given, zero fields included.
	Config config.Config
}

// Option mutates UploadOptions.
type Option func(*UploadOptions)

// WithReplaceExisting opts into replacing matching dataset files.
func WithReplaceExisting() Option {
	return func(o *UploadOptions) { o.ReplaceExisting = true }
}

// WithForceNative forces the native upload path.
func WithForceNative() Option {
	return func(o *UploadOptions) { o.ForceNative = true }
}

// WithConfig overrides the tunable configuration.
func WithConfig(c config.Config) Option {
	return func(o *UploadOptions) { o.Config = c }
}

func buildOptions(opts ...Option) UploadOptions {
	o := UploadOptions{Config: config.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
