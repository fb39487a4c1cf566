package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	out, err := CSV(Dataset{Headers: []string{"id", "event_type", "timestamp"}})
	require.NoError(t, err)
	assert.Equal(t, "id,event_type,timestamp\n", string(out))
}

func TestCSV_RowsAndQuoting(t *testing.T) {
	out, err := CSV(Dataset{
		Headers: []string{"id", "description"},
		Rows: [][]string{
			{"1", "plain"},
			{"2", `says "hi", twice`},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id,description\n1,plain\n2,\"says \"\"hi\"\", twice\"\n", string(out))
}

func TestCSV_NoHeaders(t *testing.T) {
	_, err := CSV(Dataset{})
	assert.Error(t, err)
}

func TestCSV_ColumnMismatch(t *testing.T) {
	_, err := CSV(Dataset{
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"only-one"}},
	})
	assert.Error(t, err)
}
