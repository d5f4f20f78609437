package llms

import "context"

type CallOption func(*CallOptions)

type CallOptions struct {
	Temperature   float64
	StreamingFunc func(ctx context.Context, chunk []byte) error
}

// WithTemperature sets the sampling temperature for this call.
func WithTemperature(temperature float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = temperature
	}
}

// WithStreamingFunc specifies the streaming function to use.
func WithStreamingFunc(streamingFunc func(ctx context.Context, chunk []byte) error) CallOption {
	return func(o *CallOptions) {
		o.StreamingFunc = streamingFunc
	}
}
