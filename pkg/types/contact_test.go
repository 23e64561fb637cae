package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContactSnapshotScanAcceptsStringAndBytes(t *testing.T) {
	raw := `{"firstName":"Lena","lastName":"Berg","phone":"+4915123456","email":"lena@example.com"}`

	var fromString ContactSnapshot
	require.NoError(t, fromString.Scan(raw))
	require.Equal(t, "Lena", fromString.FirstName)

	var fromBytes ContactSnapshot
	require.NoError(t, fromBytes.Scan([]byte(raw)))
	require.Equal(t, fromString, fromBytes)

	var empty ContactSnapshot
	require.NoError(t, empty.Scan(nil))
	require.Equal(t, ContactSnapshot{}, empty)

	require.Error(t, empty.Scan(42))
}
