package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediumBroadcast(t *testing.T) {
	m := NewMedium()
	a, b, c := m.Join(), m.Join(), m.Join()

	var gotB, gotC []Frame
	require.NoError(t, b.Subscribe(func(f Frame) { gotB = append(gotB, f) }))
	require.NoError(t, c.Subscribe(func(f Frame) { gotC = append(gotC, f) }))

	require.NoError(t, a.Publish(Frame{ID: 0x620, Data: []byte{1, 2}}))

	require.Len(t, gotB, 1)
	require.Len(t, gotC, 1)
	assert.Equal(t, uint16(0x620), gotB[0].ID)
	assert.Equal(t, []byte{1, 2}, gotC[0].Data)
}

func TestMediumNoSelfEcho(t *testing.T) {
	m := NewMedium()
	a := m.Join()
	_ = m.Join()

	var gotA []Frame
	require.NoError(t, a.Subscribe(func(f Frame) { gotA = append(gotA, f) }))
	require.NoError(t, a.Publish(Frame{ID: 0x632, Data: []byte{1}}))
	assert.Empty(t, gotA)
}

func TestEndpointClose(t *testing.T) {
	m := NewMedium()
	a, b := m.Join(), m.Join()

	var gotB []Frame
	require.NoError(t, b.Subscribe(func(f Frame) { gotB = append(gotB, f) }))
	require.NoError(t, b.Close())

	require.NoError(t, a.Publish(Frame{ID: 0x633, Data: []byte{9, 9}}))
	assert.Empty(t, gotB)

	assert.Error(t, b.Publish(Frame{ID: 0x633}))
	assert.Error(t, b.Subscribe(func(Frame) {}))
}
