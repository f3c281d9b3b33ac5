package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHeaderMapValue tests serialization of header maps for storage
func TestHeaderMapValue(t *testing.T) {
	t.Run("Empty Map Stores NULL", func(t *testing.T) {
		var m HeaderMap
		v, err := m.Value()
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = HeaderMap{}.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Populated Map Stores JSON", func(t *testing.T) {
		m := HeaderMap{"Authorization": "Bearer token"}
		v, err := m.Value()
		require.NoError(t, err)
		assert.Equal(t, `{"Authorization":"Bearer token"}`, v)
	})
}

// TestHeaderMapScan tests deserialization of stored header maps
func TestHeaderMapScan(t *testing.T) {
	t.Run("NULL Scans As Nil", func(t *testing.T) {
		var m HeaderMap
		require.NoError(t, m.Scan(nil))
		assert.Nil(t, m)
	})

	t.Run("Bytes And Strings Both Scan", func(t *testing.T) {
		var m HeaderMap
		require.NoError(t, m.Scan([]byte(`{"X-Custom":"1"}`)))
		assert.Equal(t, HeaderMap{"X-Custom": "1"}, m)

		require.NoError(t, m.Scan(`{"X-Custom":"2"}`))
		assert.Equal(t, HeaderMap{"X-Custom": "2"}, m)
	})

	t.Run("Malformed JSON Scans As Nil", func(t *testing.T) {
		m := HeaderMap{"stale": "value"}
		require.NoError(t, m.Scan("{not json"))
		assert.Nil(t, m)
	})

	t.Run("Unexpected Type Scans As Nil", func(t *testing.T) {
		m := HeaderMap{"stale": "value"}
		require.NoError(t, m.Scan(42))
		assert.Nil(t, m)
	})
}

// TestScheduleTypeValid tests the closed schedule type set
func TestScheduleTypeValid(t *testing.T) {
	assert.True(t, ScheduleTypeInterval.Valid())
	assert.True(t, ScheduleTypeWindow.Valid())
	assert.False(t, ScheduleType("CRON").Valid())
	assert.False(t, ScheduleType("interval").Valid())
	assert.False(t, ScheduleType("").Valid())
}

// TestValidHTTPMethod tests the accepted target method set
func TestValidHTTPMethod(t *testing.T) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"} {
		assert.True(t, ValidHTTPMethod(m), m)
	}

	assert.False(t, ValidHTTPMethod("TRACE"))
	assert.False(t, ValidHTTPMethod("get"))
	assert.False(t, ValidHTTPMethod(""))
}
