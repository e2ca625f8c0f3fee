package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCapability records prompt invocations and plays back a scripted
// sequence of results.
type countingCapability struct {
	results []PermissionState
	errs    []error
	calls   int
}

func (c *countingCapability) Supported() bool { return true }

func (c *countingCapability) Request(ctx context.Context) (PermissionState, error) {
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if i < len(c.results) {
		return c.results[i], err
	}
	return PermissionUnrequested, err
}

func TestGateStartsUnrequested(t *testing.T) {
	g := NewGate(&countingCapability{})
	assert.Equal(t, PermissionUnrequested, g.State())
	assert.False(t, g.Granted())
}

func TestGateNilCapabilityIsDenied(t *testing.T) {
	g := NewGate(nil)
	assert.Equal(t, PermissionDenied, g.State())
}

func TestGateUnsupportedIsDenied(t *testing.T) {
	g := NewGate(StaticCapability{IsSupported: false})
	assert.Equal(t, PermissionDenied, g.State())
	// Requesting on an unsupported platform never prompts.
	assert.Equal(t, PermissionDenied, g.Request(context.Background()))
}

func TestGateGrantIsCached(t *testing.T) {
	prompt := &countingCapability{results: []PermissionState{PermissionGranted}}
	g := NewGate(prompt)

	require.Equal(t, PermissionGranted, g.Request(context.Background()))
	assert.True(t, g.Granted())

	// Subsequent requests return the cached grant without prompting.
	assert.Equal(t, PermissionGranted, g.Request(context.Background()))
	assert.Equal(t, 1, prompt.calls)
}

func TestGateDenialIsTerminal(t *testing.T) {
	prompt := &countingCapability{results: []PermissionState{PermissionDenied, PermissionGranted}}
	g := NewGate(prompt)

	require.Equal(t, PermissionDenied, g.Request(context.Background()))

	// A later request reports denied without re-prompting, even though
	// the platform would now grant.
	assert.Equal(t, PermissionDenied, g.Request(context.Background()))
	assert.Equal(t, 1, prompt.calls)
}

func TestGatePromptErrorDegradesToDenied(t *testing.T) {
	prompt := &countingCapability{
		results: []PermissionState{PermissionGranted},
		errs:    []error{errors.New("platform unavailable")},
	}
	g := NewGate(prompt)

	assert.Equal(t, PermissionDenied, g.Request(context.Background()))
}

func TestGateDismissedPromptStaysRequestable(t *testing.T) {
	prompt := &countingCapability{results: []PermissionState{PermissionUnrequested, PermissionGranted}}
	g := NewGate(prompt)

	// User dismissed the prompt without answering.
	assert.Equal(t, PermissionUnrequested, g.Request(context.Background()))

	// The next request prompts again and can still succeed.
	assert.Equal(t, PermissionGranted, g.Request(context.Background()))
	assert.Equal(t, 2, prompt.calls)
}
