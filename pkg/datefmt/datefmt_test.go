package datefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		storage string
		display string
		wantErr bool
	}{
		{name: "display form", input: "15-03-2024", storage: "2024-03-15", display: "15-03-2024"},
		{name: "storage form", input: "2024-03-15", storage: "2024-03-15", display: "15-03-2024"},
		{name: "slashes", input: "15/03/2024", storage: "2024-03-15", display: "15-03-2024"},
		{name: "datetime", input: "2024-03-15 10:20:30", storage: "2024-03-15", display: "15-03-2024"},
		{name: "padded", input: "  01-12-2023 ", storage: "2023-12-01", display: "01-12-2023"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "impossible day", input: "31-02-2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := ToStorage(tt.input)
			display, derr := ToDisplay(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				assert.ErrorIs(t, derr, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			require.NoError(t, derr)
			assert.Equal(t, tt.storage, storage)
			assert.Equal(t, tt.display, display)
		})
	}
}

func TestConversionsAreIdempotent(t *testing.T) {
	once, err := ToStorage("05-06-2024")
	require.NoError(t, err)
	twice, err := ToStorage(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	d1, err := ToDisplay("2024-06-05")
	require.NoError(t, err)
	d2, err := ToDisplay(d1)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "", Display(time.Time{}))
	assert.Equal(t, "", DisplayPtr(nil))
	d := time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "09-01-2024", Display(d))
	assert.Equal(t, "09-01-2024", DisplayPtr(&d))
}
